package entities

// FlashCategory groups one-shot messages for rendering.
type FlashCategory string

const (
	FlashSuccess      FlashCategory = "success"
	FlashError        FlashCategory = "error"
	FlashGenericError FlashCategory = "generic_error"
)

// TemplateKey is the name the category is exposed under in page data.
func (c FlashCategory) TemplateKey() string {
	switch c {
	case FlashSuccess:
		return "success_msg"
	case FlashError:
		return "error_msg"
	case FlashGenericError:
		return "error"
	default:
		return string(c)
	}
}

// FlashMessage is a status or error string shown exactly once on the next
// rendered page.
type FlashMessage struct {
	Category FlashCategory
	Text     string
}
