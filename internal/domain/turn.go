package domain

// Turn is one user submission in a conversation
type Turn struct {
	Text      string
	Platform  Platform
	InputKind InputKind
	// AspectRatio applies to image mode only
	AspectRatio string
}

// Reply is the assistant side of a turn
type Reply struct {
	Content  string
	Metadata MessageMetadata
}
