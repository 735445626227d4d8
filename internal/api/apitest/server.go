// Package apitest runs an in-process fake of the chat resource server for
// tests. Fixtures are plain fields; handlers implement just enough of the
// REST surface for the client and the core components to exercise.
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vortelan/chatsync/internal/api"
)

// Server is a programmable fake resource server.
type Server struct {
	HTTP *httptest.Server

	mu sync.Mutex

	// Fixtures.
	Token string          // bearer token accepted by guarded routes
	User  api.UserPayload // identity returned by /auth/check
	OTP   string          // code accepted by /auth/verify-user

	Chats    []api.ChatPayload
	Messages map[string][]api.MessagePayload // chatId -> ascending history

	// Request counter by "METHOD path" (path without query).
	Requests map[string]int
}

// New starts the fake server. Call Close when done.
func New() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		Token:    "test-token",
		User:     api.UserPayload{ID: "u1", Username: "tester"},
		OTP:      "000000",
		Messages: make(map[string][]api.MessagePayload),
		Requests: make(map[string]int),
	}

	r := gin.New()
	r.Use(s.count)

	authed := r.Group("/", s.requireBearer)

	r.POST("/auth/login", s.login)
	r.POST("/auth/signup", s.signup)
	r.POST("/auth/verify-user", s.verifyUser)
	r.POST("/auth/resend-otp", s.resendOTP)
	authed.GET("/auth/check", s.check)
	authed.POST("/auth/logout", s.logout)

	authed.GET("/chat", s.listChats)
	authed.POST("/chat/access", s.accessChat)
	authed.POST("/chat/group", s.createGroup)
	authed.PUT("/chat/rename", s.renameGroup)
	authed.DELETE("/chat/:id", s.deleteChat)

	authed.GET("/message/:chatId", s.listMessages)
	authed.POST("/message", s.sendMessage)
	authed.PUT("/message/read", s.markRead)
	authed.DELETE("/message/:id", s.deleteMessage)

	s.HTTP = httptest.NewServer(r)
	return s
}

// Close shuts the fake server down.
func (s *Server) Close() { s.HTTP.Close() }

// URL returns the base URL clients should use.
func (s *Server) URL() string { return s.HTTP.URL }

// RequestCount returns how many times "METHOD path" was hit.
func (s *Server) RequestCount(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Requests[method+" "+path]
}

// TotalRequests returns the number of requests served.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.Requests {
		total += n
	}
	return total
}

func (s *Server) count(c *gin.Context) {
	s.mu.Lock()
	s.Requests[c.Request.Method+" "+c.Request.URL.Path]++
	s.mu.Unlock()
	c.Next()
}

func (s *Server) requireBearer(c *gin.Context) {
	s.mu.Lock()
	want := "Bearer " + s.Token
	s.mu.Unlock()

	if c.GetHeader("Authorization") != want {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authenticated"})
	}
}

func (s *Server) login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Password == "wrong" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "wrong password"})
		return
	}
	if req.Identifier == "unverified" {
		c.JSON(http.StatusForbidden, gin.H{
			"message":           "account pending verification",
			"needsVerification": true,
			"userId":            "pending-1",
		})
		return
	}
	s.mu.Lock()
	token := s.Token
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) signup(c *gin.Context) {
	var req api.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.Email == "taken@example.com" {
		c.JSON(http.StatusConflict, gin.H{"message": "email already registered"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"userId": "pending-1", "message": "verification sent"})
}

func (s *Server) verifyUser(c *gin.Context) {
	var req api.VerifyUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	s.mu.Lock()
	ok := req.OTP == s.OTP
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid OTP"})
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) resendOTP(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "OTP resent"})
}

func (s *Server) check(c *gin.Context) {
	s.mu.Lock()
	user := s.User
	s.mu.Unlock()
	c.JSON(http.StatusOK, user)
}

func (s *Server) logout(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (s *Server) listChats(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	s.mu.Lock()
	chats := append([]api.ChatPayload(nil), s.Chats...)
	s.mu.Unlock()

	c.JSON(http.StatusOK, api.ChatPage{Data: slicePage(chats, page, limit), Page: page, Limit: limit})
}

func (s *Server) accessChat(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := "dm-" + req.UserID
	for _, chat := range s.Chats {
		if chat.ID == id {
			c.JSON(http.StatusOK, chat)
			return
		}
	}
	isGroup := false
	chat := api.ChatPayload{
		ID:      id,
		IsGroup: &isGroup,
		Users:   []string{s.User.ID, req.UserID},
	}
	s.Chats = append([]api.ChatPayload{chat}, s.Chats...)
	c.JSON(http.StatusOK, chat)
}

func (s *Server) createGroup(c *gin.Context) {
	var req api.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	isGroup := true
	chat := api.ChatPayload{
		ID:          uuid.NewString(),
		IsGroupChat: &isGroup,
		GroupName:   req.Name,
		AllUsers:    append([]string{s.User.ID}, req.UserIDs...),
	}
	s.Chats = append([]api.ChatPayload{chat}, s.Chats...)
	c.JSON(http.StatusCreated, chat)
}

func (s *Server) renameGroup(c *gin.Context) {
	var req struct {
		ChatID string `json:"chatId" binding:"required"`
		Name   string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Chats {
		if s.Chats[i].ID == req.ChatID {
			s.Chats[i].GroupName = req.Name
			s.Chats[i].ChatName = ""
			c.JSON(http.StatusOK, s.Chats[i])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"message": "chat not found"})
}

func (s *Server) deleteChat(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.Chats[:0]
	found := false
	for _, chat := range s.Chats {
		if chat.ID == id {
			found = true
			continue
		}
		kept = append(kept, chat)
	}
	s.Chats = kept
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"message": "chat not found"})
		return
	}
	delete(s.Messages, id)
	c.Status(http.StatusOK)
}

func (s *Server) listMessages(c *gin.Context) {
	chatID := c.Param("chatId")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	s.mu.Lock()
	history := append([]api.MessagePayload(nil), s.Messages[chatID]...)
	s.mu.Unlock()

	if strings.EqualFold(c.DefaultQuery("sort", "asc"), "desc") {
		for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
			history[i], history[j] = history[j], history[i]
		}
	}

	c.JSON(http.StatusOK, api.MessagePage{Data: slicePage(history, page, limit), Page: page, Limit: limit})
}

func (s *Server) sendMessage(c *gin.Context) {
	var req api.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := api.MessagePayload{
		ID:          uuid.NewString(),
		ClientID:    req.ClientID,
		ChatID:      req.ChatID,
		SenderID:    s.User.ID,
		Body:        req.Body,
		Attachments: req.Attachments,
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	s.Messages[req.ChatID] = append(s.Messages[req.ChatID], msg)
	c.JSON(http.StatusCreated, msg)
}

func (s *Server) markRead(c *gin.Context) {
	var req api.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if req.ChatID == "" && req.MessageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "chatId or messageId required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID, history := range s.Messages {
		if req.ChatID != "" && chatID != req.ChatID {
			continue
		}
		for i := range history {
			if req.MessageID != "" && history[i].ID != req.MessageID {
				continue
			}
			if !contains(history[i].ReadBy, s.User.ID) {
				history[i].ReadBy = append(history[i].ReadBy, s.User.ID)
			}
		}
		s.Messages[chatID] = history
	}
	c.Status(http.StatusOK)
}

func (s *Server) deleteMessage(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID, history := range s.Messages {
		kept := history[:0]
		for _, msg := range history {
			if msg.ID != id {
				kept = append(kept, msg)
			}
		}
		s.Messages[chatID] = kept
	}
	c.Status(http.StatusOK)
}

func slicePage[T any](items []T, page, limit int) []T {
	if page < 1 || limit < 1 {
		return nil
	}
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
