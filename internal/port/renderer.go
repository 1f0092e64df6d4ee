package port

// Renderer turns text into a scannable visual encoding.
type Renderer interface {
	Render(text string) ([]byte, error)

	// ContentType is the MIME type of rendered artifacts.
	ContentType() string
}
