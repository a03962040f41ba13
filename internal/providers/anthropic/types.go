package anthropic

// MessagesRequest è il payload per /v1/messages
type MessagesRequest struct {
	Model     string         `json:"model"`
	System    string         `json:"system,omitempty"`
	Messages  []InputMessage `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
}

// InputMessage rappresenta un messaggio nel formato Anthropic
type InputMessage struct {
	Role    string `json:"role"` // user, assistant
	Content string `json:"content"`
}

// MessagesResponse è la risposta di /v1/messages
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Model      string         `json:"model"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock rappresenta un blocco di contenuto nella risposta
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage rappresenta le statistiche di utilizzo
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ModelsResponse è la risposta di /v1/models
type ModelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// ModelInfo descrive un modello disponibile
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ErrorResponse è il formato di errore Anthropic
type ErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
