package domain

// SubjectType differentiates callers of the ingress API.
type SubjectType string

const (
	// SubjectTypeGateway is the chat platform gateway relaying events.
	SubjectTypeGateway SubjectType = "GATEWAY"
	// SubjectTypeOperator is a human operator using the API directly.
	SubjectTypeOperator SubjectType = "OPERATOR"
)

// Panel names a setup message the presentation layer can post.
type Panel string

const (
	PanelTickets       Panel = "tickets"
	PanelSubscriptions Panel = "subscriptions"
)

// Valid reports whether p is a known panel.
func (p Panel) Valid() bool {
	return p == PanelTickets || p == PanelSubscriptions
}
