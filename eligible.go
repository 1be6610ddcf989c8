package pdfops

// StreamInfo gives access to the dictionary of a stream. Dict and Object
// implement it.
type StreamInfo interface {
	Type() string
	Subtype() string
	Has(key string) bool
}

// Eligible reports whether the bytes of a stream are content operators.
// Images, object streams, metadata, cross-reference streams and font
// programs (marked by a Length1 entry) are binary payloads.
func Eligible(info StreamInfo) bool {
	if info == nil {
		return true
	}
	if info.Subtype() == "Image" {
		return false
	}
	switch info.Type() {
	case "ObjStm", "Metadata", "XRef":
		return false
	}
	return !info.Has("Length1")
}
