package gemini

// Request is one generation call: the composed instruction text, the
// target aspect ratio, and any reference images to composite from.
type Request struct {
	Prompt      string
	AspectRatio string
	References  []Reference
}

type Reference struct {
	Data     []byte
	MimeType string
}

type Image struct {
	Data     []byte
	MimeType string
}
