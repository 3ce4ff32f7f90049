package services

import (
	"context"
	"sort"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/repository"
	"timeglass/internal/types"
)

// EventScanner is the read surface the aggregator needs from the store
type EventScanner interface {
	ScanEvents(ctx context.Context, start, end time.Time) ([]types.Event, error)
}

// OpenEventSource exposes the collector's currently open event so that
// summaries can clip it to "now". A nil source means no collector is
// attached (query-only deployments).
type OpenEventSource interface {
	OpenEvent() *types.Event
}

// Aggregator answers date and date-range queries over the event store:
// per-day summaries, cross-day overviews with project rollups, and
// cached daily totals.
type Aggregator struct {
	events   EventScanner
	mappings repository.MappingRepository
	open     OpenEventSource
	cache    *RollupCache
	logger   logging.Logger
	now      func() time.Time
}

// NewAggregator creates an aggregator. open may be nil when no
// collector runs in this process.
func NewAggregator(events EventScanner, mappings repository.MappingRepository, open OpenEventSource, cache *RollupCache, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Aggregator{
		events:   events,
		mappings: mappings,
		open:     open,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// clipSeconds returns the whole seconds of the event's intersection
// with [winStart, winEnd). Partial seconds are truncated, never
// rounded, so sums of rows always equal their total.
func clipSeconds(start, end, winStart, winEnd time.Time) int64 {
	if start.Before(winStart) {
		start = winStart
	}
	if end.After(winEnd) {
		end = winEnd
	}
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start) / time.Second)
}

// Summary reports one day: active and idle totals plus the full
// clipped event list. The collector's open event, when it reaches into
// the day, is clipped to "now" and included with a zero ID.
func (a *Aggregator) Summary(ctx context.Context, date time.Time) (*types.DaySummary, error) {
	dayStart := startOfDay(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := a.events.ScanEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	if a.open != nil {
		if open := a.open.OpenEvent(); open != nil {
			now := a.now()
			if now.After(open.StartTime) {
				open.EndTime = now
			}
			if open.StartTime.Before(dayEnd) && open.EndTime.After(dayStart) {
				events = append(events, *open)
			}
		}
	}

	summary := &types.DaySummary{
		Date:   dateKey(dayStart),
		Events: []types.ClippedEvent{},
	}

	for i := range events {
		event := events[i]
		seconds := clipSeconds(event.StartTime, event.EndTime, dayStart, dayEnd)
		if event.IsIdle {
			summary.IdleSeconds += seconds
		} else {
			summary.ActiveSeconds += seconds
		}
		summary.Events = append(summary.Events, types.ClippedEvent{Event: event, Seconds: seconds})
	}

	sort.SliceStable(summary.Events, func(i, j int) bool {
		return summary.Events[i].StartTime.Before(summary.Events[j].StartTime)
	})

	return summary, nil
}

// ListEvents returns the persisted events for one day, ordered by
// start time
func (a *Aggregator) ListEvents(ctx context.Context, date time.Time) ([]types.Event, error) {
	dayStart := startOfDay(date)
	return a.events.ScanEvents(ctx, dayStart, dayStart.AddDate(0, 0, 1))
}

// Rollup returns the cached active/idle totals for one day, computing
// and caching them from persisted events on a miss. The open event is
// deliberately excluded: cached data must not depend on "now".
func (a *Aggregator) Rollup(ctx context.Context, date time.Time) (types.DailyRollup, error) {
	dayStart := startOfDay(date)
	key := dateKey(dayStart)

	if rollup, ok := a.cache.Get(key); ok {
		return rollup, nil
	}

	dayEnd := dayStart.AddDate(0, 0, 1)
	events, err := a.events.ScanEvents(ctx, dayStart, dayEnd)
	if err != nil {
		return types.DailyRollup{}, err
	}

	rollup := types.DailyRollup{Date: key}
	for i := range events {
		seconds := clipSeconds(events[i].StartTime, events[i].EndTime, dayStart, dayEnd)
		if events[i].IsIdle {
			rollup.IdleSeconds += seconds
		} else {
			rollup.ActiveSeconds += seconds
		}
	}

	a.cache.Set(rollup)
	return rollup, nil
}

// groupKey identifies one (process, window, idle) bucket. Unknown
// (nil) fields are distinct from empty strings.
type groupKey struct {
	process    string
	hasProcess bool
	window     string
	hasWindow  bool
	idle       bool
}

func makeGroupKey(event *types.Event) groupKey {
	key := groupKey{idle: event.IsIdle}
	if event.ProcessName != nil {
		key.process = *event.ProcessName
		key.hasProcess = true
	}
	if event.WindowTitle != nil {
		key.window = *event.WindowTitle
		key.hasWindow = true
	}
	return key
}

// label renders the sort tiebreaker for a group
func (k groupKey) label() string {
	return k.process + "\x00" + k.window
}

// Overview reports an inclusive date range: closed events grouped by
// (process, window), idle and active tables separated, and active time
// rolled up per resolved project. Events with no resolved project stay
// in the grand totals but not in the project rollup.
func (a *Aggregator) Overview(ctx context.Context, startDate, endDate time.Time) (*types.Overview, error) {
	rangeStart := startOfDay(startDate)
	rangeEndDay := startOfDay(endDate)
	if rangeEndDay.Before(rangeStart) {
		return nil, repoerrors.HandleValidationError("Overview", "end",
			dateKey(rangeEndDay), "end date must be on or after start date")
	}
	rangeEnd := rangeEndDay.AddDate(0, 0, 1)

	events, err := a.events.ScanEvents(ctx, rangeStart, rangeEnd)
	if err != nil {
		return nil, err
	}

	lookup, err := a.buildProjectLookup(ctx)
	if err != nil {
		return nil, err
	}

	overview := &types.Overview{
		Start:         dateKey(rangeStart),
		End:           dateKey(rangeEndDay),
		Entries:       []types.ActivityGroup{},
		IdleEntries:   []types.ActivityGroup{},
		ProjectTotals: []types.ProjectTotal{},
	}

	groups := make(map[groupKey]*types.ActivityGroup)
	projectTotals := make(map[string]int64)

	for i := range events {
		event := events[i]
		seconds := clipSeconds(event.StartTime, event.EndTime, rangeStart, rangeEnd)
		if seconds == 0 {
			continue
		}

		var project *string
		if !event.IsIdle {
			// Per-event override wins over the mapping table.
			if event.ProjectName != nil {
				project = event.ProjectName
			} else {
				project = lookup.resolve(event.ProcessName, event.WindowTitle)
			}
			if project != nil {
				projectTotals[*project] += seconds
			}
			overview.ActiveSeconds += seconds
		} else {
			overview.IdleSeconds += seconds
		}

		key := makeGroupKey(&event)
		group, ok := groups[key]
		if !ok {
			group = &types.ActivityGroup{
				ProcessName: event.ProcessName,
				WindowTitle: event.WindowTitle,
				IsIdle:      event.IsIdle,
				ProjectName: project,
			}
			if event.IsIdle && event.ProcessName == nil && event.WindowTitle == nil {
				idleLabel := "Idle"
				group.WindowTitle = &idleLabel
			}
			groups[key] = group
		}
		group.Seconds += seconds
	}

	for key, group := range groups {
		if key.idle {
			overview.IdleEntries = append(overview.IdleEntries, *group)
		} else {
			overview.Entries = append(overview.Entries, *group)
		}
	}

	sortGroups(overview.Entries)
	sortGroups(overview.IdleEntries)

	for name, seconds := range projectTotals {
		overview.ProjectTotals = append(overview.ProjectTotals, types.ProjectTotal{
			ProjectName: name,
			Seconds:     seconds,
		})
	}
	sort.Slice(overview.ProjectTotals, func(i, j int) bool {
		pi, pj := overview.ProjectTotals[i], overview.ProjectTotals[j]
		if pi.Seconds != pj.Seconds {
			return pi.Seconds > pj.Seconds
		}
		return pi.ProjectName < pj.ProjectName
	})

	return overview, nil
}

// sortGroups orders by descending duration, ties by group label ascending
func sortGroups(entries []types.ActivityGroup) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Seconds != entries[j].Seconds {
			return entries[i].Seconds > entries[j].Seconds
		}
		return entryLabel(&entries[i]) < entryLabel(&entries[j])
	})
}

func entryLabel(g *types.ActivityGroup) string {
	var process, window string
	if g.ProcessName != nil {
		process = *g.ProcessName
	}
	if g.WindowTitle != nil {
		window = *g.WindowTitle
	}
	return process + "\x00" + window
}

// projectLookup is the mapping table loaded into memory for one
// overview pass: one query instead of one per group.
type projectLookup map[[2]string]string

func (a *Aggregator) buildProjectLookup(ctx context.Context) (projectLookup, error) {
	mappings, err := a.mappings.ListMappings(ctx)
	if err != nil {
		return nil, err
	}

	lookup := make(projectLookup, len(mappings))
	for _, m := range mappings {
		lookup[[2]string{m.ProcessName, m.WindowTitle}] = m.ProjectName
	}
	return lookup, nil
}

// resolve applies the two-level lookup: exact (process, window) first,
// then the process-level default. Events with no process never resolve.
func (l projectLookup) resolve(processName, windowTitle *string) *string {
	if processName == nil {
		return nil
	}
	process := repository.NormalizeProcessName(*processName)

	if windowTitle != nil {
		if project, ok := l[[2]string{process, *windowTitle}]; ok {
			return &project
		}
	}
	if project, ok := l[[2]string{process, ""}]; ok {
		return &project
	}
	return nil
}
