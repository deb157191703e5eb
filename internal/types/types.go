package types

import "encoding/json"

type AuthResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expiresAt"`
	User      UserInfo `json:"user"`
}

type Chat struct {
	Id         string `json:"id"`
	UserId     string `json:"userId"`
	Name       string `json:"name"`
	NameSource string `json:"nameSource"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type ChatMessage struct {
	Id        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type Contract struct {
	Id         string          `json:"id"`
	UserId     string          `json:"userId"`
	Filename   string          `json:"filename,omitempty"`
	Status     string          `json:"status"`
	Characters int             `json:"characters"`
	Report     json.RawMessage `json:"report,omitempty"`
	CreatedAt  string          `json:"createdAt"`
	UpdatedAt  string          `json:"updatedAt"`
}

type ContractChatRequest struct {
	ContractId string `path:"contractId" json:"-"`
	Message    string `json:"message"`
}

type ContractChatResponse struct {
	Reply string `json:"reply"`
}

type CreateChatRequest struct {
	Name string `json:"name,omitempty"`
}

type CreateRatingRequest struct {
	ChatId   string `json:"chatId"`
	Score    int    `json:"score"`
	Feedback string `json:"feedback,omitempty"`
}

type DashboardChat struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

type DashboardDay struct {
	Day           string `json:"day"`
	Consultations int    `json:"consultations"`
	Analyses      int    `json:"analyses"`
}

type DashboardInsight struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type DashboardKpis struct {
	ActiveCases       int     `json:"activeCases"`
	MessagesSent      int     `json:"messagesSent"`
	ContractsAnalyzed int     `json:"contractsAnalyzed"`
	RisksFlagged      int     `json:"risksFlagged"`
	AverageRating     float64 `json:"averageRating"`
}

type DashboardStatsRequest struct {
	UserId string `form:"userId"`
}

type DashboardStatsResponse struct {
	Kpis     DashboardKpis    `json:"kpis"`
	Activity []DashboardDay   `json:"activity"`
	Recent   []DashboardChat  `json:"recent"`
	Insight  DashboardInsight `json:"insight"`
}

type DeleteChatRequest struct {
	ChatId string `path:"chatId"`
}

type DeleteContractRequest struct {
	ContractId string `path:"contractId"`
}

type DeleteRatingRequest struct {
	RatingId string `path:"ratingId"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type GetChatRequest struct {
	ChatId string `path:"chatId"`
}

type GetContractRequest struct {
	ContractId string `path:"contractId"`
}

type GetRatingRequest struct {
	RatingId string `path:"ratingId"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Version   string         `json:"version"`
	Timestamp string         `json:"timestamp"`
	Analysis  *AnalysisStats `json:"analysis,omitempty"`
}

type AnalysisStats struct {
	Workers int `json:"workers"`
	Active  int `json:"active"`
	Queued  int `json:"queued"`
}

type KnowledgeSearchRequest struct {
	Query string `form:"q"`
	K     int    `form:"k"`
}

type KnowledgeSearchResponse struct {
	Snippets []KnowledgeSnippet `json:"snippets"`
}

type KnowledgeSnippet struct {
	Source string  `json:"source"`
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
}

type ListChatsRequest struct {
	UserId string `form:"userId"`
}

type ListChatsResponse struct {
	Chats []Chat `json:"chats"`
}

type ListContractsRequest struct {
	UserId string `form:"userId"`
}

type ListContractsResponse struct {
	Contracts []Contract `json:"contracts"`
}

type ListRatingsRequest struct {
	UserId       string `form:"userId"`
	ChatId       string `form:"chatId"`
	Score        int    `form:"score"`
	WithFeedback bool   `form:"withFeedback"`
}

type ListRatingsResponse struct {
	Ratings []Rating `json:"ratings"`
}

type ListMessagesRequest struct {
	ChatId string `path:"chatId"`
	Limit  int    `form:"limit"`
}

type ListMessagesResponse struct {
	Messages []ChatMessage `json:"messages"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ModelsResponse struct {
	Providers     []string `json:"providers"`
	DefaultModel  string   `json:"defaultModel"`
	TitleModel    string   `json:"titleModel"`
	AnalysisModel string   `json:"analysisModel"`
}

type Rating struct {
	Id        string `json:"id"`
	UserId    string `json:"userId"`
	ChatId    string `json:"chatId"`
	Score     int    `json:"score"`
	Feedback  string `json:"feedback,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SendMessageRequest struct {
	ChatId  string `json:"chatId"`
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
}

type SendMessageResponse struct {
	UserTurn      ChatMessage `json:"userTurn"`
	AssistantTurn ChatMessage `json:"assistantTurn"`
}

type SubmitContractRequest struct {
	OwnerId  string `json:"ownerId,omitempty"`
	Filename string `json:"filename,omitempty"`
	Text     string `json:"text"`
}

type SubmitContractResponse struct {
	Id     string `json:"id"`
	Status string `json:"status"`
}

type UpdateChatRequest struct {
	ChatId string `path:"chatId" json:"-"`
	Name   string `json:"name"`
}

type UpdateRatingRequest struct {
	RatingId string  `path:"ratingId" json:"-"`
	Score    *int    `json:"score,omitempty"`
	Feedback *string `json:"feedback,omitempty"`
}

type UserInfo struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	IsAdmin   bool   `json:"isAdmin"`
	CreatedAt string `json:"createdAt,omitempty"`
}
