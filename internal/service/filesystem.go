package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mculink/bridge/internal/link"
)

// FilesystemIDs carries the response/error identifiers Filesystem emits.
type FilesystemIDs struct {
	FileReadResp uint16
	StatusError  uint16
}

// Filesystem implements FILE_READ/FILE_WRITE/FILE_REMOVE sandboxed to a
// configured root (spec.md §4.4). Oversized reads are chunked across
// successive FILE_READ_RESP frames; the first chunk rides the direct
// Outcome response, the rest drain through Flush on the scheduler's next
// yield points (mirroring Console's outbound chunking).
type Filesystem struct {
	ids               FilesystemIDs
	root              string
	writeMaxBytes     int
	storageQuotaBytes int
	storageUsed       int
	maxPayload        int
	sender            ConsoleSender
	readQueue         [][]byte

	WriteLimitRejections   int
	StorageLimitRejections int
}

// NewFilesystem roots all paths under root, enforcing writeMaxBytes per
// write and storageQuotaBytes in total.
func NewFilesystem(ids FilesystemIDs, root string, writeMaxBytes, storageQuotaBytes, maxPayload int, sender ConsoleSender) *Filesystem {
	return &Filesystem{
		ids:               ids,
		root:              filepath.Clean(root),
		writeMaxBytes:     writeMaxBytes,
		storageQuotaBytes: storageQuotaBytes,
		maxPayload:        maxPayload,
		sender:            sender,
	}
}

// RegisterOn wires FILE_READ/FILE_WRITE/FILE_REMOVE into engine.
func (f *Filesystem) RegisterOn(e *Engine, read, write, remove uint16) {
	e.RegisterFunc(read, f.handleRead)
	e.RegisterFunc(write, f.handleWrite)
	e.RegisterFunc(remove, f.handleRemove)
}

// resolve rejects any path that would escape f.root after cleaning.
func (f *Filesystem) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	full := filepath.Join(f.root, clean)
	if full != f.root && !strings.HasPrefix(full, f.root+string(filepath.Separator)) {
		return "", fmt.Errorf("file path escapes sandbox root")
	}
	return full, nil
}

func (f *Filesystem) errorOutcome(reason string) link.Outcome {
	return link.Outcome{HasResp: true, RespID: f.ids.StatusError, RespPayload: []byte(reason)}
}

func (f *Filesystem) handleRead(payload []byte) link.Outcome {
	full, err := f.resolve(string(payload))
	if err != nil {
		return f.errorOutcome("invalid_path")
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return f.errorOutcome("read_failed")
	}
	chunks := chunkBytes(data, f.maxPayload)
	if len(chunks) == 0 {
		return link.Outcome{HasResp: true, RespID: f.ids.FileReadResp, RespPayload: nil}
	}
	f.readQueue = append(f.readQueue, chunks[1:]...)
	return link.Outcome{HasResp: true, RespID: f.ids.FileReadResp, RespPayload: chunks[0]}
}

func (f *Filesystem) handleWrite(payload []byte) link.Outcome {
	if len(payload) < 1 {
		return link.Outcome{}
	}
	plen := int(payload[0])
	if len(payload) < 1+plen {
		return link.Outcome{}
	}
	path := string(payload[1 : 1+plen])
	data := payload[1+plen:]

	if len(data) > f.writeMaxBytes {
		f.WriteLimitRejections++
		return f.errorOutcome("write_limit_exceeded")
	}
	if f.storageUsed+len(data) > f.storageQuotaBytes {
		f.StorageLimitRejections++
		return f.errorOutcome("storage_quota_exceeded")
	}
	full, err := f.resolve(path)
	if err != nil {
		return f.errorOutcome("invalid_path")
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return f.errorOutcome("write_failed")
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return f.errorOutcome("write_failed")
	}
	f.storageUsed += len(data)
	return link.Outcome{}
}

func (f *Filesystem) handleRemove(payload []byte) link.Outcome {
	full, err := f.resolve(string(payload))
	if err != nil {
		return f.errorOutcome("invalid_path")
	}
	if info, statErr := os.Stat(full); statErr == nil {
		f.storageUsed -= int(info.Size())
		if f.storageUsed < 0 {
			f.storageUsed = 0
		}
	}
	if err := os.Remove(full); err != nil {
		return f.errorOutcome("remove_failed")
	}
	return link.Outcome{}
}

// Flush drains any chunks left over from a multi-frame FILE_READ.
func (f *Filesystem) Flush() error {
	for len(f.readQueue) > 0 {
		next := f.readQueue[0]
		f.readQueue = f.readQueue[1:]
		if err := f.sender.Send(f.ids.FileReadResp, next); err != nil {
			return err
		}
	}
	return nil
}

// StorageBytesUsed backs the file_storage_bytes_used telemetry key.
func (f *Filesystem) StorageBytesUsed() int { return f.storageUsed }

func chunkBytes(data []byte, size int) [][]byte {
	if size <= 0 {
		return [][]byte{data}
	}
	var out [][]byte
	for len(data) > 0 {
		n := size
		if n > len(data) {
			n = len(data)
		}
		out = append(out, append([]byte(nil), data[:n]...))
		data = data[n:]
	}
	return out
}
