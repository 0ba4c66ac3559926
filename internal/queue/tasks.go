package queue

const (
	TypeVersionCreate  = "version:create"
	TypeSourceCheck    = "source:check"
	TypeRetentionApply = "retention:apply"
)

type VersionCreatePayload struct {
	DocumentID string `json:"document_id"`
	ContentKey string `json:"content_key"`
	Comment    string `json:"comment"`
	Actor      string `json:"actor,omitempty"`
}

type SourceCheckPayload struct {
	SourceID string `json:"source_id"`
}
