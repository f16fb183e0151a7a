package receipt

// Type is a registered receipt_type tag. The engine treats any tag
// outside the registry as an error (UnknownReceiptType); collaborators
// may register additional domain tags with Register.
type Type string

// Registered core types, the closed vocabulary the engine recognizes
// out of the box.
const (
	TypeIngest         Type = "ingest"
	TypeAnchor         Type = "anchor"
	TypeVerify         Type = "verify"
	TypePacket         Type = "packet"
	TypeAttach         Type = "attach"
	TypeConsistency    Type = "consistency"
	TypeHalt           Type = "halt"
	TypeAnomaly        Type = "anomaly"
	TypeRedaction      Type = "redaction"
	TypeOfflineEnqueue Type = "offline_enqueue"
	TypeOfflineSync    Type = "offline_sync"
)

var coreTypes = map[Type]bool{
	TypeIngest:         true,
	TypeAnchor:         true,
	TypeVerify:         true,
	TypePacket:         true,
	TypeAttach:         true,
	TypeConsistency:    true,
	TypeHalt:           true,
	TypeAnomaly:        true,
	TypeRedaction:      true,
	TypeOfflineEnqueue: true,
	TypeOfflineSync:    true,
}

// Registry tracks the closed vocabulary of receipt types a deployment
// recognizes: the core types plus any collaborator-registered domain
// tags. It carries no other state and has no package-level mutable
// singleton — callers construct and own one explicitly.
type Registry struct {
	extra map[Type]bool
}

// NewRegistry returns a Registry recognizing exactly the core types.
func NewRegistry() *Registry {
	return &Registry{extra: make(map[Type]bool)}
}

// Register adds a collaborator-defined domain tag to the registry.
func (r *Registry) Register(t Type) {
	r.extra[t] = true
}

// Recognized reports whether t is a registered tag, core or extension.
func (r *Registry) Recognized(t Type) bool {
	if coreTypes[t] {
		return true
	}
	return r.extra[t]
}
