package model

// RunCodeRequest is the payload for executing code during an attempt.
type RunCodeRequest struct {
	Language string `json:"language" binding:"required,min=1,max=40"`
	Code     string `json:"code" binding:"required,max=65536"`
	Stdin    string `json:"stdin" binding:"omitempty,max=65536"`
}
