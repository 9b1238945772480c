package capture

// Direction classifies a captured TCP segment relative to the configured
// filter port: SendDir when the segment's destination is the filter port
// (client-to-server), RecvDir otherwise (glossary).
type Direction int

const (
	RecvDir Direction = iota
	SendDir
)
