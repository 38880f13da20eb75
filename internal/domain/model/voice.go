package model

const VoiceStatusTraining = "training"

// Voice is a provider-registered speaking voice. Status is owned by the provider.
type Voice struct {
	ID     string `json:"uuid"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// VoicePage is one page of the provider's voice listing.
type VoicePage struct {
	Page     int     `json:"page"`
	NumPages int     `json:"num_pages"`
	PageSize int     `json:"page_size"`
	Items    []Voice `json:"items"`
}
