package engine

// pendingCall is a tool call waiting for its result.
type pendingCall struct {
	messageID string
	tool      string
}

// pendingTable maps correlation ids to unresolved calls. When the server
// emits tool_call_id on both sides of a pair, results resolve here
// independent of timeline position; calls without ids never enter the
// table and fall back to the trailing-message heuristic.
type pendingTable struct {
	calls map[string]pendingCall
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: map[string]pendingCall{}}
}

func (p *pendingTable) add(callID, messageID, tool string) {
	if callID == "" {
		return
	}
	p.calls[callID] = pendingCall{messageID: messageID, tool: tool}
}

// take resolves and removes the call registered under callID.
func (p *pendingTable) take(callID string) (pendingCall, bool) {
	call, ok := p.calls[callID]
	if ok {
		delete(p.calls, callID)
	}
	return call, ok
}

// drop removes any entry pointing at messageID, used when a result was
// merged through the trailing-message fallback instead of by id.
func (p *pendingTable) drop(messageID string) {
	for id, call := range p.calls {
		if call.messageID == messageID {
			delete(p.calls, id)
		}
	}
}
