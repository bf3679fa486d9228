package models

// RemoteDirectory is the run's destination folder on the server.
type RemoteDirectory struct {
	Name string
	ID   int64
}

// ShareRequest describes one share over a set of uploaded files. FileIDs
// keep upload completion order. Password and TrafficLimit are optional.
type ShareRequest struct {
	Name         string
	FileIDs      []int64
	ExpireDays   int
	Password     string
	TrafficLimit int64
}

// ShareResult is what the server hands back for a share.
type ShareResult struct {
	URL string
	Key string
}
