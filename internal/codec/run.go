// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/teradata-labs/loomdbg/internal/model"
)

type wireRunBlob struct {
	UUID          uuid.UUID    `json:"uuid"`
	Name          string       `json:"name"`
	ProgramName   string       `json:"program_name"`
	StartTime     int64        `json:"start_time"`
	Events        []wireEvent  `json:"events"`
	Commits       []wireCommit `json:"commits"`
	ServerVersion string       `json:"server_version"`
}

// RunToBytes serializes run to the canonical persisted-blob JSON shape
// (uncompressed, unencoded): {uuid, name, program_name, start_time, events,
// commits, server_version}.
func RunToBytes(run *model.Run) ([]byte, error) {
	blob := wireRunBlob{
		UUID:          run.ID,
		Name:          run.Name,
		ProgramName:   run.ProgramName,
		StartTime:     run.StartTime.Unix(),
		ServerVersion: run.ServerVersion,
	}
	for _, ev := range run.OrderedEvents() {
		blob.Events = append(blob.Events, toWireEvent(ev))
	}
	for _, c := range run.Commits {
		blob.Commits = append(blob.Commits, toWireCommit(c))
	}
	return json.Marshal(blob)
}

// RunFromBytes parses the canonical persisted-blob JSON shape into a Run
// with a fresh identity, per the import contract (a re-imported run never
// keeps its original id).
func RunFromBytes(data []byte) (*model.Run, error) {
	var blob wireRunBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	run := model.NewRun(blob.Name, blob.ProgramName, unixTime(blob.StartTime), blob.ServerVersion)
	for _, we := range blob.Events {
		run.AddEvent(fromWireEvent(we))
	}
	for _, wc := range blob.Commits {
		run.AddCommit(fromWireCommit(wc))
	}
	return run, nil
}

// EncodeRunExportBlob produces the UI import/export wire string:
// base64(zlib(RunToBytes(run))).
func EncodeRunExportBlob(run *model.Run) (string, error) {
	raw, err := RunToBytes(run)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("compress run: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("compress run: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeRunImportBlob reverses EncodeRunExportBlob: base64 decode, zlib
// decompress, then RunFromBytes.
func DecodeRunImportBlob(encoded string) (*model.Run, error) {
	compressed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base64: %v", ErrMalformedMessage, err)
	}
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: bad zlib: %v", ErrMalformedMessage, err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: bad zlib: %v", ErrMalformedMessage, err)
	}
	return RunFromBytes(raw)
}
