package audit

// Summarize folds entries into a Summary. A proposal counts as pending
// until an approval entry for its task follows it. RecentActions holds up
// to recent entries, newest first. Date is left empty.
func Summarize(entries []*Entry, recent int) *Summary {
	ret := &Summary{TotalActions: len(entries), RecentActions: []*Entry{}}
	pending := map[string]int{}
	for _, entry := range entries {
		switch entry.Type {
		case TypeProposal:
			ret.Proposals++
			pending[entry.TaskID]++
		case TypeApproval:
			ret.Approvals++
			delete(pending, entry.TaskID)
		case TypeExecution:
			payload := ExecutionPayload{}
			if err := entry.Decode(&payload); err != nil {
				continue
			}
			switch payload.Status {
			case ExecutionStarted:
				ret.Executions++
			case ExecutionCompleted:
				ret.Completed++
			case ExecutionFailed:
				ret.Failed++
			}
		}
	}
	for _, count := range pending {
		ret.PendingApprovals += count
	}
	for i := len(entries) - 1; i >= 0 && len(ret.RecentActions) < recent; i-- {
		ret.RecentActions = append(ret.RecentActions, entries[i].Clone())
	}
	return ret
}
