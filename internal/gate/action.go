package gate

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// Document transit actions
	ActionSend    Action = "send"
	ActionReceive Action = "receive"
	ActionDerive  Action = "derive"
	ActionArchive Action = "archive"

	// Inventory session actions
	ActionTransition Action = "transition"
	ActionVerify     Action = "verify"
)
