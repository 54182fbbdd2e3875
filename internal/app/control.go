package app

import "github.com/corey/weft/internal/adapters/socket"

// ControlStats implements socket.Queries.
func (a *App) ControlStats() (socket.StatsResult, error) {
	s, err := a.Stats()
	if err != nil {
		return socket.StatsResult{}, err
	}
	return socket.StatsResult{
		SessionID:   s.SessionID,
		Scheduler:   s.Scheduler,
		Strategy:    s.Strategy,
		Corpus:      s.Corpus,
		Solutions:   s.Solutions,
		Executions:  s.Executions,
		ExecsPerSec: s.ExecsPerSec,
		QueueCycles: s.QueueCycles,
		RunsInCycle: s.RunsInCycle,
		Current:     s.Current,
		StartedAt:   s.StartedAt,
	}, nil
}

// ControlNext implements socket.Queries.
func (a *App) ControlNext(count int, record bool) (socket.NextResult, error) {
	picks, err := a.Select(count, record)
	if err != nil {
		return socket.NextResult{}, err
	}
	out := make([]socket.PickInfo, len(picks))
	for i, p := range picks {
		out[i] = socket.PickInfo{Index: p.Index, File: p.File}
	}
	return socket.NextResult{Picks: out, Count: len(out)}, nil
}

// ControlCorpus implements socket.Queries.
func (a *App) ControlCorpus() (socket.CorpusResult, error) {
	entries, err := a.Report()
	if err != nil {
		return socket.CorpusResult{}, err
	}
	out := make([]socket.EntryInfo, len(entries))
	for i, e := range entries {
		out[i] = socket.EntryInfo{
			Index:     e.Index,
			File:      e.File,
			Depth:     e.Depth,
			Bucket:    e.Bucket,
			Hits:      e.Hits,
			FuzzLevel: e.FuzzLevel,
			Score:     e.Score,
			Share:     e.Share,
			Current:   e.Current,
		}
	}
	return socket.CorpusResult{
		Entries:  out,
		Count:    len(out),
		Weighted: a.SchedulerName() == SchedulerWeighted,
	}, nil
}

// StatsFromResult converts a stats reply from a watching process.
func StatsFromResult(r socket.StatsResult) Stats {
	return Stats{
		SessionID:   r.SessionID,
		Scheduler:   r.Scheduler,
		Strategy:    r.Strategy,
		Corpus:      r.Corpus,
		Solutions:   r.Solutions,
		Executions:  r.Executions,
		ExecsPerSec: r.ExecsPerSec,
		QueueCycles: r.QueueCycles,
		RunsInCycle: r.RunsInCycle,
		Current:     r.Current,
		StartedAt:   r.StartedAt,
	}
}

// PicksFromResult converts a next reply from a watching process.
func PicksFromResult(r socket.NextResult) []Pick {
	picks := make([]Pick, len(r.Picks))
	for i, p := range r.Picks {
		picks[i] = Pick{Index: p.Index, File: p.File}
	}
	return picks
}

// EntriesFromResult converts a corpus reply from a watching process.
func EntriesFromResult(r socket.CorpusResult) []Entry {
	entries := make([]Entry, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = Entry{
			Index:     e.Index,
			File:      e.File,
			Depth:     e.Depth,
			Bucket:    e.Bucket,
			Hits:      e.Hits,
			FuzzLevel: e.FuzzLevel,
			Score:     e.Score,
			Share:     e.Share,
			Current:   e.Current,
		}
	}
	return entries
}
