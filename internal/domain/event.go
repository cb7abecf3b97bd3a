package domain

// FileEventKind classifies a filesystem notification.
type FileEventKind int

const (
	FileCreated FileEventKind = iota
	FileModified
	FileRemoved
	FileRenamed
	// FileOverflow means the kernel queue overflowed and events were lost.
	FileOverflow
)

func (k FileEventKind) String() string {
	switch k {
	case FileCreated:
		return "create"
	case FileModified:
		return "modify"
	case FileRemoved:
		return "remove"
	case FileRenamed:
		return "rename"
	case FileOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// FileEvent is one change observed in a watched directory.
type FileEvent struct {
	// Name is the path of the affected file.
	Name string
	Kind FileEventKind
}
