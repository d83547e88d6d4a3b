// Package meshfilter simplifies polyhedral meshes by collapsing short edges
// and small faces while keeping the number of bad quality faces in check.
//
// A Filter owns a working copy of the input mesh. Every pass builds a
// candidate mesh by collapsing edges below their local minimum length and
// faces below their local size factor. When the candidate has more bad faces
// than tolerated the thresholds around the offending points are reduced and
// the pass is retried; points that keep causing bad faces are eventually
// excluded from collapsing.
package meshfilter

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/soypat/meshfilter/collapse"
	"github.com/soypat/meshfilter/mesh"
	"github.com/soypat/meshfilter/quality"
	"github.com/soypat/meshfilter/remap"
)

// noCopy may be embedded into structs which must not be copied after first
// use. See go vet's copylocks check.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// IterationStats records one collapse attempt.
type IterationStats struct {
	Iteration int
	Round     int
	// EdgesCollapsed and FacesCollapsed count the collapses of the candidate.
	EdgesCollapsed int
	FacesCollapsed int
	Rejected       int
	// Bad is the number of bad faces of the candidate.
	Bad      int
	Accepted bool
	// Points, Faces and Cells are the sizes of the working mesh after the
	// attempt.
	Points, Faces, Cells int
}

// Filter runs the collapse passes. It is not safe for concurrent use and
// must not be copied.
type Filter struct {
	noCopy  noCopy
	cfg     Config
	log     logrus.FieldLogger
	mesh    *mesh.Mesh
	fields  thresholds
	errs    *PointErrors
	history []IterationStats
}

// Option configures a Filter.
type Option func(*Filter)

// WithLogger sets the logger of the filter. The default is the logrus
// standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Filter) { f.log = l }
}

// New returns a filter working on a copy of m. m is never modified.
func New(m *mesh.Mesh, cfg Config, opts ...Option) (*Filter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Filter{cfg: cfg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(f)
	}
	f.mesh = m.Copy()
	f.fields = seedThresholds(f.mesh, cfg)
	f.errs = NewPointErrors(f.mesh.NPoints(), cfg.MaxPointErrorCount)
	return f, nil
}

// FilteredMesh returns the working mesh.
func (f *Filter) FilteredMesh() *mesh.Mesh { return f.mesh }

// MinEdgeLengths returns a copy of the minimum length of every working mesh edge.
func (f *Filter) MinEdgeLengths() []float64 {
	return append([]float64(nil), f.fields.minEdgeLen...)
}

// FaceFilterFactors returns a copy of the filter factor of every working mesh face.
func (f *Filter) FaceFilterFactors() []float64 {
	return append([]float64(nil), f.fields.faceFactor...)
}

// PointErrorCounts returns the error count of every original point.
func (f *Filter) PointErrorCounts() []int { return f.errs.Counts() }

// OriginalToCurrent maps every original point to its working mesh point.
func (f *Filter) OriginalToCurrent() []int { return f.errs.Current() }

// Excluded flags the working mesh points excluded from collapsing.
func (f *Filter) Excluded() []bool { return f.errs.Excluded(f.mesh.NPoints()) }

// History returns every collapse attempt so far.
func (f *Filter) History() []IterationStats {
	return append([]IterationStats(nil), f.history...)
}

// Filter collapses edges and then faces until nothing collapses or the
// iteration budget runs out. Candidates with more than nOriginalBad bad faces
// are rejected when quality control is enabled. It returns the number of bad
// faces of the working mesh, or of the last rejected candidate when the
// relaxation rounds run out.
func (f *Filter) Filter(nOriginalBad int) (int, error) {
	return f.run(nOriginalBad, true)
}

// FilterEdges is Filter without face collapsing.
func (f *Filter) FilterEdges(nOriginalBad int) (int, error) {
	return f.run(nOriginalBad, false)
}

// FilterIndirectPatchFaces collapses every face of the face zone named by
// Config.IndirectPatchFaces to a point regardless of its size. It returns
// the number of collapsed faces.
func (f *Filter) FilterIndirectPatchFaces() (int, error) {
	total := 0
	for pass := 0; ; pass++ {
		z := f.mesh.FindZone(f.cfg.IndirectPatchFaces)
		if z < 0 {
			f.log.WithField("zone", f.cfg.IndirectPatchFaces).Debug("no indirect patch face zone")
			return total, nil
		}
		faces := f.mesh.Zones()[z].Faces
		if len(faces) == 0 {
			return total, nil
		}
		res, err := collapse.Zone(f.mesh, faces, f.errs.Excluded(f.mesh.NPoints()))
		if err != nil {
			return total, err
		}
		if res.Collapsed == 0 {
			f.log.WithField("remaining", len(faces)).Warn("indirect patch faces could not be collapsed")
			return total, nil
		}
		c := &candidate{mesh: res.Mesh, mp: res.Map, touched: res.Touched, faces: res.Collapsed, rejected: res.Rejected}
		if err := f.commit(c); err != nil {
			return total, err
		}
		total += res.Collapsed
		f.record(IterationStats{Iteration: pass, FacesCollapsed: res.Collapsed, Rejected: res.Rejected, Accepted: true, Bad: -1})
		f.log.WithFields(logrus.Fields{"pass": pass, "collapsed": res.Collapsed}).Info("collapsed indirect patch faces")
	}
}

// candidate is a collapsed mesh not yet committed.
type candidate struct {
	mesh *mesh.Mesh
	// mp relates the working mesh to the candidate.
	mp *mesh.Map
	// touched flags the candidate points that were merge targets.
	touched  []bool
	edges    int
	faces    int
	rejected int
}

func (f *Filter) run(nOriginalBad int, withFaces bool) (int, error) {
	for iter := 0; iter < f.cfg.MaxIterations; iter++ {
		for round := 0; ; round++ {
			c, err := f.attempt(withFaces)
			if err != nil {
				return 0, err
			}
			log := f.log.WithFields(logrus.Fields{"iter": iter, "round": round})
			stats := IterationStats{Iteration: iter, Round: round, EdgesCollapsed: c.edges, FacesCollapsed: c.faces, Rejected: c.rejected}
			if c.edges+c.faces == 0 {
				bad := f.bad()
				stats.Bad = bad
				f.record(stats)
				log.WithField("bad", bad).Info("nothing to collapse")
				return bad, nil
			}
			rep := quality.Evaluate(c.mesh, f.cfg.MeshQuality)
			stats.Bad = rep.Len()
			log = log.WithFields(logrus.Fields{"edges": c.edges, "faces": c.faces, "rejected": c.rejected})
			if !f.cfg.ControlMeshQuality || rep.Len() <= nOriginalBad {
				if err := f.commit(c); err != nil {
					return 0, err
				}
				stats.Accepted = true
				f.record(stats)
				log.WithFields(rep.Fields()).Info("committed collapse pass")
				break
			}

			errorPoint := f.relax(c, rep)
			f.record(stats)
			log.WithFields(rep.Fields()).WithField("errorPoints", errorPoint).Debug("relaxed thresholds")
			if round+1 >= f.cfg.MaxSmoothIters {
				log.WithField("bad", rep.Len()).Warn("relaxation rounds exhausted")
				return rep.Len(), nil
			}
		}
	}
	bad := f.bad()
	f.log.WithField("bad", bad).Info("iteration budget reached")
	return bad, nil
}

func (f *Filter) bad() int {
	return quality.Evaluate(f.mesh, f.cfg.MeshQuality).Len()
}

// attempt collapses the working mesh without committing the result.
func (f *Filter) attempt(withFaces bool) (*candidate, error) {
	excluded := f.errs.Excluded(f.mesh.NPoints())
	er, err := collapse.Edges(f.mesh, collapse.EdgeParams{
		MinEdgeLen: f.fields.minEdgeLen,
		MaxCos:     f.cfg.MaxCos,
		Excluded:   excluded,
	})
	if err != nil {
		return nil, err
	}
	c := &candidate{mesh: er.Mesh, mp: er.Map, touched: er.Touched, edges: er.Collapsed, rejected: er.Rejected}
	if !withFaces || f.cfg.InitialFaceLengthFactor <= 0 {
		return c, nil
	}
	factor, err := remap.FaceField(f.fields.faceFactor, er.Map, er.Mesh.NFaces())
	if err != nil {
		return nil, err
	}
	fr, err := collapse.Faces(er.Mesh, collapse.FaceParams{
		FilterFactor: factor,
		Excluded:     mapFlags(excluded, er.Map.ReversePointMap, er.Mesh.NPoints()),
		Coeffs:       f.cfg.CollapseFacesCoeffs,
	})
	if err != nil {
		return nil, err
	}
	touched := mapFlags(er.Touched, fr.Map.ReversePointMap, fr.Mesh.NPoints())
	for p, t := range fr.Touched {
		touched[p] = touched[p] || t
	}
	c.mesh = fr.Mesh
	c.mp = er.Map.Compose(fr.Map)
	c.touched = touched
	c.faces = fr.Collapsed
	c.rejected += fr.Rejected
	return c, nil
}

// commit makes c the working mesh.
func (f *Filter) commit(c *candidate) error {
	fields, err := f.fields.remap(f.mesh, c.mp, c.mesh)
	if err != nil {
		return fmt.Errorf("meshfilter: remapping thresholds: %w", err)
	}
	if err := f.errs.Remap(c.mp.ReversePointMap); err != nil {
		return err
	}
	f.mesh = c.mesh
	f.fields = fields
	logFieldStats(f.log, "minEdgeLen", f.fields.minEdgeLen)
	logFieldStats(f.log, "faceFilterFactor", f.fields.faceFactor)
	return nil
}

// relax penalises the points implicated in the bad faces of c and reduces
// the thresholds of the working mesh around them. It returns the number of
// candidate error points.
func (f *Filter) relax(c *candidate, rep *quality.Report) int {
	errorPoint := implicatedPoints(c.mesh, rep, c.touched)
	f.errs.Increment(errorPoint, c.mp.ReversePointMap)
	working := make([]bool, f.mesh.NPoints())
	n := 0
	for _, ep := range errorPoint {
		if ep {
			n++
		}
	}
	for w, p := range c.mp.ReversePointMap {
		working[w] = p >= 0 && errorPoint[p]
	}
	f.fields.relax(f.mesh, working, f.cfg.EdgeReductionFactor, f.cfg.FaceReductionFactor)
	return n
}

func (f *Filter) record(s IterationStats) {
	s.Points, s.Faces, s.Cells = f.mesh.NPoints(), f.mesh.NFaces(), f.mesh.NCells()
	f.history = append(f.history, s)
}

// implicatedPoints flags the points of every bad face of m bounding a cell
// with a touched point. When no bad face is implicated the points of every
// bad face are flagged.
func implicatedPoints(m *mesh.Mesh, rep *quality.Report, touched []bool) []bool {
	cellTouched := make([]bool, m.NCells())
	for c, pts := range m.CellPoints() {
		for _, p := range pts {
			if touched[p] {
				cellTouched[c] = true
				break
			}
		}
	}
	flags := make([]bool, m.NPoints())
	faces := m.Faces()
	found := false
	for _, fc := range rep.Faces {
		hit := cellTouched[m.Owner()[fc]]
		if nei := m.FaceNeighbour(fc); nei >= 0 {
			hit = hit || cellTouched[nei]
		}
		if !hit {
			continue
		}
		found = true
		for _, p := range faces[fc] {
			flags[p] = true
		}
	}
	if !found {
		return rep.ErrorPoints(m)
	}
	return flags
}

// mapFlags carries point flags through a reverse point map onto n points.
func mapFlags(flags []bool, rev []int, n int) []bool {
	out := make([]bool, n)
	for p, fl := range flags {
		if fl && rev[p] >= 0 {
			out[rev[p]] = true
		}
	}
	return out
}
