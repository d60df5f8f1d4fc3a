package types

// ToolResult is the outcome of one tool invocation: either rendered text or a
// classified error, never both.
type ToolResult struct {
	Text string
	Err  *MCPError
}

// IsError reports whether the invocation failed.
func (r ToolResult) IsError() bool {
	return r.Err != nil
}

// Render returns the text handed back to the caller.
func (r ToolResult) Render() string {
	if r.Err != nil {
		return r.Err.Text()
	}
	return r.Text
}
