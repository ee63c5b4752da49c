//go:build windows

package busybee

// HandleSigPipe does nothing on Windows.
func HandleSigPipe() {
}
