package models

// FetchRequest starts a fresh feed session for an account address.
type FetchRequest struct {
	Address string `json:"address" validate:"required,min=32,max=88"`
}

// FeedSnapshot is the read-only view of the pipeline state exposed to the UI.
type FeedSnapshot struct {
	Records        []EnrichedRecord `json:"records"`
	Cursor         *string          `json:"cursor,omitempty"`
	LoadingInitial bool             `json:"loading_initial"`
	LoadingMore    bool             `json:"loading_more"`
	Stale          bool             `json:"stale"`
}

// ChatRequest is a single-shot conversational completion request.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	MaxTokens int    `json:"max_tokens" default:"256" validate:"gte=1,lte=4096"`
}

// ChatResponse carries the assistant reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}
