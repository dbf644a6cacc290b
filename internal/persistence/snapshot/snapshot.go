// Package snapshot saves and restores a battle in progress. Files ending in
// .zst are zstd compressed; anything else is indented JSON.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"battlematus/internal/combat"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Round   int    `json:"round"`
	Note    string `json:"note,omitempty"`
}

// Battle is a saved battle: its state and the agent spec of every member
// that has one.
type Battle struct {
	Header Header            `json:"header"`
	State  *combat.State     `json:"state"`
	Agents map[string]string `json:"agents"`
}

// Capture copies the simulation's current battle.
func Capture(sim *combat.Simulation) Battle {
	return Battle{
		Header: Header{Version: Version, Round: sim.State.Round},
		State:  sim.State.Clone(),
		Agents: sim.AgentSpecs(),
	}
}

// Restore loads the battle into sim, building agents with factory. Agent
// entries for members the battle does not know are skipped.
func (b Battle) Restore(sim *combat.Simulation, factory combat.AgentFactory) {
	sim.Load(b.State.Clone(), b.Agents, factory)
}

func compressed(path string) bool { return strings.HasSuffix(path, ".zst") }

func Write(path string, b Battle) error {
	if b.State == nil {
		return errors.New("snapshot: no state")
	}
	if b.Header.Version == 0 {
		b.Header.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	var w io.Writer = f
	if compressed(path) {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		defer enc.Close()
		w = enc
	}
	bw := bufio.NewWriterSize(w, 64*1024)
	je := json.NewEncoder(bw)
	if !compressed(path) {
		je.SetIndent("", "  ")
	}
	if err := je.Encode(b); err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	return bw.Flush()
}

func Read(path string) (Battle, error) {
	var b Battle
	f, err := os.Open(path)
	if err != nil {
		return b, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return b, err
		}
		defer dec.Close()
		r = dec
	}
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&b); err != nil {
		return b, fmt.Errorf("snapshot decode %s: %w", path, err)
	}
	if b.Header.Version != Version {
		return b, fmt.Errorf("snapshot %s: unsupported version %d", path, b.Header.Version)
	}
	if b.State == nil {
		return b, fmt.Errorf("snapshot %s: no state", path)
	}
	if b.State.Members == nil {
		b.State.Members = map[string]*combat.Member{}
	}
	return b, nil
}
