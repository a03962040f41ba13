package google

// GenerateContentRequest è il payload per models/{model}:generateContent
type GenerateContentRequest struct {
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
}

// Content rappresenta un turno della conversazione
type Content struct {
	Role  string `json:"role,omitempty"` // user, model
	Parts []Part `json:"parts"`
}

// Part rappresenta un frammento di contenuto
type Part struct {
	Text string `json:"text"`
}

// GenerateContentResponse è la risposta di generateContent
type GenerateContentResponse struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string         `json:"modelVersion"`
}

// Candidate rappresenta una risposta candidata
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata rappresenta le statistiche di utilizzo
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// ModelsResponse è la risposta di /v1beta/models
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo descrive un modello disponibile
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ErrorResponse è il formato di errore dell'API Gemini
type ErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
