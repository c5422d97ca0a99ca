package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/urban-sim/incident-sim/sim/congestion"
	"github.com/urban-sim/incident-sim/sim/events"
	"github.com/urban-sim/incident-sim/sim/incident"
	"github.com/urban-sim/incident-sim/sim/intensity"
	"github.com/urban-sim/incident-sim/sim/matrix"
	"github.com/urban-sim/incident-sim/sim/modulator"
	"github.com/urban-sim/incident-sim/sim/regime"
	"github.com/urban-sim/incident-sim/sim/response"
	"github.com/urban-sim/incident-sim/sim/snapshot"
	"github.com/urban-sim/incident-sim/sim/stats"
	"github.com/urban-sim/incident-sim/sim/trace"
)

// OutcomeFunc receives every severe-incident outcome as it is resolved.
type OutcomeFunc func(trace.Outcome)

// DayReport summarizes one simulated day.
type DayReport struct {
	Day        int
	Incidents  int
	Grave      int
	NewEvents  int
	Outcomes   int
	Casualties int
}

// Engine advances the city one day at a time. It is single-threaded; every
// stochastic decision of a day draws from that day's stream in a fixed
// order: regimes, per-type intensity and sampling, events, congestion,
// response.
type Engine struct {
	cfg       Config
	rng       *PartitionedRNG
	store     *matrix.Store
	stations  *response.Manager
	hospitals []response.Hospital

	regimes    *regime.Manager
	modulator  *modulator.Modulator
	generator  *intensity.Generator
	eventGen   *events.Generator
	congestion *congestion.Calculator
	responder  *response.Calculator

	vectors *incident.VectorStore
	log     *events.Log
	table   *congestion.Table
	trace   *trace.Trace

	day        int
	current    map[incident.ZoneID]incident.Regime
	casualties map[int]int
	zoneLoss   map[int]map[incident.ZoneID]int // per-day casualties by zone
	outcomes   map[int][]trace.Outcome
	onOutcome  []OutcomeFunc
}

// NewEngine validates cfg and the static inputs and builds an engine
// positioned before day 1. Validation failures abort here, never mid-run.
func NewEngine(cfg Config, store *matrix.Store, stations []*response.Station, hospitals []response.Hospital) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || len(store.Zones()) == 0 {
		return nil, errors.New("engine requires a matrix store with at least one zone")
	}
	rm, err := regime.NewManager(cfg.Regime.Transition)
	if err != nil {
		return nil, err
	}
	gen, err := intensity.NewGenerator(cfg.CrossSeverity)
	if err != nil {
		return nil, err
	}
	mgr, err := response.NewManager(stations)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		rng:        NewPartitionedRNG(NewSimulationKey(cfg.Seed)),
		store:      store,
		stations:   mgr,
		hospitals:  hospitals,
		regimes:    rm,
		generator:  gen,
		eventGen:   events.NewGenerator(cfg.Seed),
		vectors:    incident.NewVectorStore(),
		log:        events.NewLog(),
		table:      congestion.NewTable(),
		trace:      trace.New(cfg.Trace),
		current:    make(map[incident.ZoneID]incident.Regime),
		casualties: make(map[int]int),
		zoneLoss:   make(map[int]map[incident.ZoneID]int),
		outcomes:   make(map[int][]trace.Outcome),
	}

	schedule := modulator.GenerateSchedule(store.Boroughs(), cfg.Horizon, e.rng.ForSubsystem(SubsystemPatterns))
	if err := e.setSchedule(schedule); err != nil {
		return nil, err
	}
	e.congestion = congestion.NewCalculator(store, e.vectors, e.table)
	e.responder, err = response.NewCalculator(cfg.Response, mgr, hospitals, e.table.Get)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		logrus.Warn("no stations configured: every severe incident will be an automatic fatality")
	}
	return e, nil
}

func (e *Engine) setSchedule(s *modulator.Schedule) error {
	m, err := modulator.New(e.cfg.Modulator, e.store, e.vectors, s)
	if err != nil {
		return err
	}
	e.modulator = m
	return nil
}

// OnOutcome registers a callback invoked for every resolved severe incident.
func (e *Engine) OnOutcome(fn OutcomeFunc) {
	if fn != nil {
		e.onOutcome = append(e.onOutcome, fn)
	}
}

// Run simulates the next n days.
func (e *Engine) Run(n int) error {
	for i := 0; i < n; i++ {
		if _, err := e.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step simulates the next day and returns its report.
func (e *Engine) Step() (DayReport, error) {
	day := e.day + 1
	rng := e.rng.ForDay(day)
	rep := DayReport{Day: day}

	e.stations.ReturnDue(day)
	e.advanceRegimes(day, rng)

	for _, z := range e.store.Zones() {
		zv := e.sampleZone(z, day, rng)
		if err := e.vectors.Put(day, z.ID, zv); err != nil {
			return rep, err
		}
		rep.Incidents += zv.Total()
		for _, v := range zv {
			rep.Grave += v.Grave()
		}
	}

	created, err := e.generateEvents(day, rng)
	if err != nil {
		return rep, err
	}
	rep.NewEvents = len(created)

	results, err := e.congestion.Compute(day, e.log, rng)
	if err != nil {
		return rep, err
	}
	for _, ev := range created {
		if ev.Kind == events.KindGrave && ev.Grave.Characteristics.TrafficSlowdown {
			e.congestion.ApplySlowdown(day, ev.Borough, ev.Grave.Characteristics.TrafficEffect)
		}
	}

	for _, ev := range created {
		if ev.Kind == events.KindGrave && ev.Grave.Characteristics.ResponderDeath {
			e.addCasualty(day, ev.Grave.Zone)
		}
	}
	for _, z := range e.store.Zones() {
		rep.Outcomes += e.respond(z, day, results[z.ID], rng)
	}
	rep.Casualties = e.casualties[day]

	e.day = day
	logrus.Debugf("day %d: %d incidents (%d grave), %d events, %d casualties",
		day, rep.Incidents, rep.Grave, rep.NewEvents, rep.Casualties)
	return rep, nil
}

// advanceRegimes draws every zone's regime for day in store order.
func (e *Engine) advanceRegimes(day int, rng *rand.Rand) {
	for _, z := range e.store.Zones() {
		cur, ok := e.current[z.ID]
		if !ok {
			p := regime.InitialProbabilities(z.Risk)
			e.current[z.ID] = e.regimes.Initialize(z.ID, rng, &p)
			continue
		}
		mod := regime.Modulators{Wealth: z.Wealth}
		if lost := e.zoneLoss[day-1][z.ID]; lost > 0 {
			mod.CrisisProbability = math.Min(e.cfg.Regime.MaxFeedback, e.cfg.Regime.CasualtyFeedback*float64(lost))
		}
		e.current[z.ID] = e.regimes.TransitionModulated(cur, rng, mod)
	}
}

// sampleZone computes the capped intensity of every family of a zone and
// samples its vectors.
func (e *Engine) sampleZone(z matrix.Zone, day int, rng *rand.Rand) incident.ZoneVectors {
	var zv incident.ZoneVectors
	season := incident.SeasonOf(day)
	active := e.log.ActiveInBorough(day, z.Borough)
	r := e.current[z.ID]
	for _, t := range incident.Types {
		seasonal := incident.SeasonalMultiplier(t, season) * e.store.SeasonalFactor(z.ID, season)
		b := intensity.Calculate(
			z.BaseIntensity[t],
			seasonal,
			e.modulator.Calibrated(z.ID, z.Borough, t, day),
			e.modulator.Dynamic(z.ID, t, day, r, active),
			intensity.WealthModulation(t, z.Wealth),
		)
		yesterday := e.vectors.Get(z.ID, t, day-1).Dominant()
		zv[t] = e.generator.Sample(rng, b.Final, r, yesterday)
	}
	return zv
}

// generateEvents spawns grave events zone by zone, then positive events.
func (e *Engine) generateEvents(day int, rng *rand.Rand) ([]events.Event, error) {
	var created []events.Event
	for _, z := range e.store.Zones() {
		zv, _ := e.vectors.Zone(z.ID, day)
		for _, t := range incident.Types {
			evs, err := e.eventGen.GenerateGrave(e.log, day, z.ID, z.Borough, t, zv[t], rng)
			if err != nil {
				return created, err
			}
			created = append(created, evs...)
		}
	}
	evs, err := e.eventGen.GeneratePositive(e.log, day, e.store.Boroughs(), rng)
	if err != nil {
		return created, err
	}
	return append(created, evs...), nil
}

// respond resolves every severe incident of a zone. The first share of each
// family's severe incidents, proportional to its night-time incidents,
// happens at night; night assaults may involve intoxication.
func (e *Engine) respond(z matrix.Zone, day int, cr congestion.Result, rng *rand.Rand) int {
	zv, _ := e.vectors.Zone(z.ID, day)
	n := 0
	for _, t := range incident.Types {
		g := zv[t].Grave()
		if g == 0 {
			continue
		}
		nightGrave := 0
		if total := zv[t].Total(); total > 0 {
			nightGrave = int(math.Round(float64(g) * float64(cr.NightIncidents[t]) / float64(total)))
		}
		for i := 0; i < g; i++ {
			night := i < nightGrave
			intoxicated := t == incident.Assault && night && stats.Bernoulli(rng, e.cfg.Night.IntoxicationProbability)
			out := e.responder.Resolve(response.Request{
				Day:         day,
				Zone:        z.ID,
				Location:    z.Centroid,
				Type:        t,
				Night:       night,
				Intoxicated: intoxicated,
			}, rng)
			e.record(out)
			n++
		}
	}
	return n
}

func (e *Engine) record(o trace.Outcome) {
	e.outcomes[o.Day] = append(e.outcomes[o.Day], o)
	e.trace.Record(o)
	if o.Casualty() {
		e.addCasualty(o.Day, o.Zone)
	}
	for _, fn := range e.onOutcome {
		fn(o)
	}
}

func (e *Engine) addCasualty(day int, zone incident.ZoneID) {
	e.casualties[day]++
	e.bumpZoneLoss(day, zone)
}

// === Read accessors ===

// Day returns the last completed day (0 before the first step).
func (e *Engine) Day() int { return e.day }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Store returns the static matrix store.
func (e *Engine) Store() *matrix.Store { return e.store }

// Stations returns the station manager.
func (e *Engine) Stations() *response.Manager { return e.stations }

// Trace returns the outcome trace.
func (e *Engine) Trace() *trace.Trace { return e.trace }

// Schedule returns the re-randomization schedule.
func (e *Engine) Schedule() *modulator.Schedule { return e.modulator.Schedule() }

// VectorsForDay returns a zone's vectors on a day.
func (e *Engine) VectorsForDay(zone incident.ZoneID, day int) (incident.ZoneVectors, bool) {
	return e.vectors.Zone(zone, day)
}

// EventsForDay returns the events created on a day.
func (e *Engine) EventsForDay(day int) []events.Event { return e.log.ForDay(day) }

// ActiveEvents returns the events active on a day.
func (e *Engine) ActiveEvents(day int) []events.Event { return e.log.Active(day) }

// Congestion returns a zone's congestion on a day.
func (e *Engine) Congestion(zone incident.ZoneID, day int) (float64, bool) {
	return e.table.Get(zone, day)
}

// CasualtiesForDay returns the casualties of a day: response mortalities
// plus responder deaths of grave events created that day.
func (e *Engine) CasualtiesForDay(day int) int { return e.casualties[day] }

// OutcomesForDay returns the severe-incident outcomes of a day.
func (e *Engine) OutcomesForDay(day int) []trace.Outcome {
	out := make([]trace.Outcome, len(e.outcomes[day]))
	copy(out, e.outcomes[day])
	return out
}

// Regime returns a zone's current regime.
func (e *Engine) Regime(zone incident.ZoneID) (incident.Regime, bool) {
	r, ok := e.current[zone]
	return r, ok
}

// === Snapshot ===

// State captures the engine's mutable state after the last completed day.
func (e *Engine) State() *snapshot.State {
	st := &snapshot.State{
		Version:    snapshot.Version,
		Seed:       e.cfg.Seed,
		Day:        e.day,
		Regimes:    make(map[incident.ZoneID]incident.Regime, len(e.current)),
		Events:     e.log.All(),
		Casualties: make(map[int]int, len(e.casualties)),
		Stations:   e.stations.States(),
		Windows:    e.modulator.Schedule().Windows(),
	}
	for z, r := range e.current {
		st.Regimes[z] = r
	}
	for d, n := range e.casualties {
		st.Casualties[d] = n
	}
	for _, day := range e.vectors.Days() {
		for zone, zv := range e.vectors.ForDay(day) {
			st.Vectors = append(st.Vectors, snapshot.VectorEntry{Day: day, Zone: zone, Vectors: zv})
		}
	}
	for _, day := range e.table.Days() {
		for zone, v := range e.table.ForDay(day) {
			st.Congestion = append(st.Congestion, snapshot.CongestionEntry{Day: day, Zone: zone, Value: v})
		}
	}
	for d := 1; d <= e.day; d++ {
		st.Outcomes = append(st.Outcomes, e.outcomes[d]...)
	}
	st.Sort()
	return st
}

// Restore loads a saved state into a fresh engine built from the same seed
// and static inputs. Stepping afterwards continues the run exactly.
func (e *Engine) Restore(st *snapshot.State) error {
	if e.day != 0 || len(e.vectors.Days()) != 0 {
		return errors.New("restore requires a fresh engine")
	}
	if st.Seed != e.cfg.Seed {
		return fmt.Errorf("snapshot seed %d does not match engine seed %d", st.Seed, e.cfg.Seed)
	}
	if err := st.Validate(); err != nil {
		return err
	}
	for _, v := range st.Vectors {
		if _, ok := e.store.Zone(v.Zone); !ok {
			return fmt.Errorf("snapshot references unknown zone %s: %w", v.Zone, matrix.ErrUnknownZone)
		}
		if err := e.vectors.Put(v.Day, v.Zone, v.Vectors); err != nil {
			return err
		}
	}
	for _, ev := range st.Events {
		if err := e.log.Append(ev); err != nil {
			return err
		}
	}
	for _, c := range st.Congestion {
		if err := e.table.Set(c.Zone, c.Day, c.Value); err != nil {
			return err
		}
	}
	if err := e.stations.Restore(st.Stations); err != nil {
		return err
	}
	if err := e.setSchedule(modulator.NewSchedule(st.Windows)); err != nil {
		return err
	}
	for z, r := range st.Regimes {
		e.current[z] = r
	}
	for d, n := range st.Casualties {
		e.casualties[d] = n
	}
	for _, o := range st.Outcomes {
		e.outcomes[o.Day] = append(e.outcomes[o.Day], o)
		e.trace.Record(o)
		if o.Casualty() {
			e.bumpZoneLoss(o.Day, o.Zone)
		}
	}
	for _, ev := range st.Events {
		if ev.Kind == events.KindGrave && ev.Grave.Characteristics.ResponderDeath {
			e.bumpZoneLoss(ev.Day, ev.Grave.Zone)
		}
	}
	e.day = st.Day
	logrus.Infof("restored run at day %d (%d events, %d outcomes)", st.Day, len(st.Events), len(st.Outcomes))
	return nil
}

func (e *Engine) bumpZoneLoss(day int, zone incident.ZoneID) {
	if e.zoneLoss[day] == nil {
		e.zoneLoss[day] = make(map[incident.ZoneID]int)
	}
	e.zoneLoss[day][zone]++
}
