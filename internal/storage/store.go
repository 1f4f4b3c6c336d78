package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/san-kum/mbtree/internal/tree"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Metadata describes one saved snapshot.
type Metadata struct {
	ID             string             `json:"id"`
	Model          string             `json:"model"`
	Timestamp      time.Time          `json:"timestamp"`
	Time           float64            `json:"time"`
	Representation string             `json:"representation"`
	NumBodies      int                `json:"num_bodies"`
	NQ             int                `json:"nq"`
	NU             int                `json:"nu"`
	Energy         map[string]float64 `json:"energy"`
}

// BodyRecord is the realized state of one body.
type BodyRecord struct {
	Node   int
	Name   string
	Origin [3]float64 // body origin in G
	Q      []float64
	U      []float64
	QDot   []float64
	UDot   []float64
}

var bodyHeader = []string{"node", "name", "x", "y", "z", "q", "u", "qdot", "udot"}

// Save writes metadata.json and bodies.csv under a new snapshot directory.
// The state must be realized through Reaction.
func (s *Store) Save(model string, t *tree.Tree, st *state.State, energy map[string]float64) (string, error) {
	if err := stage.Require(tree.Ground, "snapshot", st.Stage(), stage.Reaction); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	runID := id.String()
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := Metadata{
		ID:             runID,
		Model:          model,
		Timestamp:      time.Now(),
		Time:           st.Time(),
		Representation: st.ModelingVars().Rep().String(),
		NumBodies:      t.NumBodies(),
		NQ:             t.NQ(),
		NU:             t.NU(),
		Energy:         energy,
	}
	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	if err := writeBodies(filepath.Join(runDir, "bodies.csv"), t, st); err != nil {
		os.RemoveAll(runDir)
		return "", err
	}
	return runID, nil
}

func writeMetadata(path string, meta Metadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	return f.Close()
}

func writeBodies(path string, t *tree.Tree, st *state.State) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(bodyHeader); err != nil {
		return err
	}
	for _, n := range t.Nodes()[1:] {
		p := n.XGB(st).P
		row := []string{
			strconv.Itoa(n.Num()),
			n.Name(),
			formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z),
			formatList(st.NodeQ(n.Num())),
			formatList(st.NodeU(n.Num())),
			formatList(n.QDot(st)),
			formatList(n.UDot(st)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable snapshot, oldest first. Version 7 ids sort by
// creation time.
func (s *Store) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Metadata{}, nil
		}
		return nil, err
	}

	runs := make([]Metadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].ID < runs[j].ID })
	return runs, nil
}

func (s *Store) Load(runID string) (*Metadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("storage: bad snapshot id %q: %w", runID, err)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadBodies(runID string) ([]BodyRecord, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("storage: bad snapshot id %q: %w", runID, err)
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, "bodies.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(bodyHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []BodyRecord{}, nil
	}

	bodies := make([]BodyRecord, 0, len(records)-1)
	for i, rec := range records[1:] {
		b, err := parseBody(rec)
		if err != nil {
			return nil, fmt.Errorf("storage: %s row %d: %w", runID, i+1, err)
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func parseBody(rec []string) (BodyRecord, error) {
	var b BodyRecord
	var err error
	if b.Node, err = strconv.Atoi(rec[0]); err != nil {
		return b, err
	}
	b.Name = rec[1]
	for i := 0; i < 3; i++ {
		if b.Origin[i], err = strconv.ParseFloat(rec[2+i], 64); err != nil {
			return b, err
		}
	}
	lists := []*[]float64{&b.Q, &b.U, &b.QDot, &b.UDot}
	for i, dst := range lists {
		if *dst, err = parseList(rec[5+i]); err != nil {
			return b, err
		}
	}
	return b, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatList(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

func parseList(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
