package search

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string, mode Mode)
	AfterDocumentSearch(results []*DocumentResult)
	AfterConfidence(confidence float64, webNeeded bool)
	AfterWebSearch(results []*WebResult)
	Finish(resp *Response)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode)                  {}
func (n *noopMonitor) AfterDocumentSearch(_ []*DocumentResult) {}
func (n *noopMonitor) AfterConfidence(_ float64, _ bool)       {}
func (n *noopMonitor) AfterWebSearch(_ []*WebResult)           {}
func (n *noopMonitor) Finish(_ *Response)                      {}
