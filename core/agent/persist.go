package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Checkpoint artifact names.
const (
	actorArtifact  = "sac_actor"
	criticArtifact = "sac_critic"
)

type tensorJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

func dumpParams(params []*mat.Dense) []tensorJSON {
	out := make([]tensorJSON, len(params))
	for i, p := range params {
		rows, cols := p.Dims()
		data := make([]float64, 0, rows*cols)
		for r := 0; r < rows; r++ {
			data = append(data, p.RawRowView(r)...)
		}
		out[i] = tensorJSON{Rows: rows, Cols: cols, Data: data}
	}
	return out
}

func restoreParams(params []*mat.Dense, ts []tensorJSON) error {
	if len(ts) != len(params) {
		return fmt.Errorf("artifact holds %d tensors, networks expect %d", len(ts), len(params))
	}
	for i, p := range params {
		rows, cols := p.Dims()
		if ts[i].Rows != rows || ts[i].Cols != cols {
			return fmt.Errorf("tensor %d is %dx%d, expected %dx%d", i, ts[i].Rows, ts[i].Cols, rows, cols)
		}
		if len(ts[i].Data) != rows*cols {
			return fmt.Errorf("tensor %d holds %d values, expected %d", i, len(ts[i].Data), rows*cols)
		}
		p.Copy(mat.NewDense(rows, cols, ts[i].Data))
	}
	return nil
}

func checkpointDir(path string) string {
	return filepath.Join(path, "monitor", "checkpoints")
}

func writeArtifact(dir, name string, params []*mat.Dense) error {
	data, err := json.Marshal(dumpParams(params))
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readArtifact(dir, name string, params []*mat.Dense) error {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	var ts []tensorJSON
	if err := json.Unmarshal(data, &ts); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	if err := restoreParams(params, ts); err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	return nil
}

// Save serializes policy and critic parameters as the artifacts sac_actor
// and sac_critic under <path>/monitor/checkpoints.
func (l *Learner) Save(path string) error {
	dir := checkpointDir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := writeArtifact(dir, actorArtifact, l.policy.Params()); err != nil {
		return err
	}
	return writeArtifact(dir, criticArtifact, l.critic.Params())
}

// Load restores policy and critic parameters from the artifacts under
// <path>/monitor/checkpoints. Loading is all-or-nothing per artifact: a
// missing or mismatched artifact is an error. The critic target is
// re-synchronized to the restored critic.
func (l *Learner) Load(path string) error {
	dir := checkpointDir(path)
	if err := readArtifact(dir, actorArtifact, l.policy.Params()); err != nil {
		return err
	}
	if err := readArtifact(dir, criticArtifact, l.critic.Params()); err != nil {
		return err
	}
	HardUpdate(l.criticTarget, l.critic)
	return nil
}
