package lifecycle

// Operation is one user-initiated lifecycle request. The set of
// implementations is closed: Install, Update, Start, Stop, Unload, StartAll.
type Operation interface {
	// Kind names the operation in results, logs and metrics.
	Kind() OperationKind
	isOperation()
}

type OperationKind string

const (
	OpInstall  OperationKind = "install"
	OpUpdate   OperationKind = "update"
	OpStart    OperationKind = "start"
	OpStop     OperationKind = "stop"
	OpUnload   OperationKind = "unload"
	OpStartAll OperationKind = "start-all"
)

// Install loads a new module archive and starts it. With LoadOnly the
// module is left LOADED, for a later Start or StartAll.
type Install struct {
	Archive  []byte
	LoadOnly bool
}

// Update replaces an installed module in place, stopping and restarting the
// modules that depend on it. Without an installed module of the same id it
// behaves like Install.
type Update struct {
	Archive []byte
}

// Start starts one loaded module.
type Start struct {
	ID string
}

// Stop stops one started module. Cascade stops its started dependents
// first; Force stops it even though dependents keep running.
type Stop struct {
	ID      string
	Cascade bool
	Force   bool
}

// Unload stops the module if needed and removes it from the registry.
type Unload struct {
	ID      string
	Cascade bool
	Force   bool
}

// StartAll starts every loaded module that is not running, in dependency
// order, continuing past individual failures.
type StartAll struct{}

func (Install) Kind() OperationKind  { return OpInstall }
func (Update) Kind() OperationKind   { return OpUpdate }
func (Start) Kind() OperationKind    { return OpStart }
func (Stop) Kind() OperationKind     { return OpStop }
func (Unload) Kind() OperationKind   { return OpUnload }
func (StartAll) Kind() OperationKind { return OpStartAll }

func (Install) isOperation()  {}
func (Update) isOperation()   {}
func (Start) isOperation()    {}
func (Stop) isOperation()     {}
func (Unload) isOperation()   {}
func (StartAll) isOperation() {}
