package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/OpenTTD/bananas-server/catalog"
	"github.com/OpenTTD/bananas-server/content"
	"github.com/OpenTTD/bananas-server/internal/cos"
	"github.com/OpenTTD/bananas-server/internal/nlog"
	"github.com/OpenTTD/bananas-server/internal/safeid"
	"github.com/OpenTTD/bananas-server/storage"
	"github.com/OpenTTD/bananas-server/wire"
)

// Application is the routing core (spec.md §4.6): it has no transport
// knowledge of its own, taking a *Conn purely as a frame sink.
type Application struct {
	Catalog           *catalog.Catalog
	Storage           storage.Backend
	BootstrapUniqueID *content.UniqueID
	Metrics           Metrics
}

func NewApplication(cat *catalog.Catalog, backend storage.Backend) *Application {
	return &Application{Catalog: cat, Storage: backend, Metrics: noopMetrics{}}
}

// decodeOpenTTDVersion implements spec.md §4.6 "Version decoding". The
// sentinel 0xFFFFFFFF is followed by an explicit branch-versions map; any
// other value is decoded per the legacy or extended bit layout depending on
// the top byte.
func decodeOpenTTDVersion(d *wire.Decoder, raw uint32) (map[string][]int, error) {
	if raw == 0xFFFFFFFF {
		count, err := d.Uint8()
		if err != nil {
			return nil, err
		}
		versions := make(map[string][]int, count)
		for i := 0; i < int(count); i++ {
			branch, err := d.String()
			if err != nil {
				return nil, err
			}
			n, err := d.Uint8()
			if err != nil {
				return nil, err
			}
			parts := make([]int, n)
			for j := range parts {
				v, err := d.Uint8()
				if err != nil {
					return nil, err
				}
				parts[j] = int(v)
			}
			versions[branch] = parts
		}
		return versions, nil
	}

	top := (raw >> 24) & 0xFF
	if top > 27 {
		major := int(top) - 16
		minor := int((raw >> 20) & 0xF)
		return map[string][]int{"vanilla": {major, minor}}, nil
	}
	major := int((raw >> 28) & 0xF)
	minor := int((raw >> 24) & 0xF)
	patch := int((raw >> 20) & 0xF)
	return map[string][]int{"vanilla": {major, minor, patch}}, nil
}

func encodeServerInfo(e *content.Entry) ([]byte, error) {
	enc := wire.NewEncoder(wire.PacketServerInfo)
	enc.Uint8(uint8(e.ContentType))
	enc.Uint32(e.ContentID)
	enc.Uint32(e.FileSize)
	enc.String(e.Name)
	enc.String(e.Version)
	enc.String(e.URL)
	enc.String(e.Description)

	wireUnique := content.EncodeUniqueID(e.ContentType, e.UniqueID)
	enc.Bytes(wireUnique[:])
	enc.Bytes(e.MD5Sum[:])

	enc.Uint8(uint8(len(e.Dependencies)))
	for _, dep := range e.Dependencies {
		enc.Uint32(dep)
	}

	tags := e.Tags()
	enc.Uint8(uint8(len(tags)))
	for _, t := range tags {
		enc.String(t)
	}

	enc.Uint32(uint32(e.UploadDate.Unix()))
	return enc.Finish()
}

func (a *Application) sendEntry(conn *Conn, e *content.Entry) error {
	frame, err := encodeServerInfo(e)
	if err != nil {
		return fmt.Errorf("server: encoding SERVER_INFO for content id %d: %w", e.ContentID, err)
	}
	return conn.Write(frame)
}

func handleClientInfoList(_ context.Context, app *Application, conn *Conn, payload []byte) error {
	d := wire.NewDecoder(payload)
	ctRaw, err := d.Uint8()
	if err != nil {
		return err
	}
	ct := content.Type(ctRaw)
	if !ct.Valid() {
		return wire.ErrInvalidData("content type %d is not valid", ctRaw)
	}
	verRaw, err := d.Uint32()
	if err != nil {
		return err
	}
	versions, err := decodeOpenTTDVersion(d, verRaw)
	if err != nil {
		nlog.Warningf("server: conn %s: malformed branch-versions map, refusing listing: %v", conn.ID, err)
		return nil
	}

	snap := app.Catalog.Current()
	entries := snap.ByContentType(ct)

	var bootstrap *content.Entry
	if app.BootstrapUniqueID != nil && ct == content.TypeBaseGraphics {
		if e, ok := snap.ByUniqueID(ct, *app.BootstrapUniqueID); ok {
			bootstrap = e
			if err := app.sendEntry(conn, e); err != nil {
				return err
			}
		}
	}

	for _, e := range entries {
		if bootstrap != nil && e.ContentID == bootstrap.ContentID {
			continue
		}
		if !e.MatchesAny(versions) {
			continue
		}
		if err := app.sendEntry(conn, e); err != nil {
			return err
		}
	}
	return nil
}

func handleClientInfoID(_ context.Context, app *Application, conn *Conn, payload []byte) error {
	d := wire.NewDecoder(payload)
	count, err := d.Uint16()
	if err != nil {
		return err
	}
	snap := app.Catalog.Current()
	for i := 0; i < int(count); i++ {
		id, err := d.Uint32()
		if err != nil {
			return err
		}
		e, ok := snap.ByContentID(id)
		if !ok {
			continue
		}
		if err := app.sendEntry(conn, e); err != nil {
			return err
		}
	}
	return nil
}

func handleClientInfoExtID(_ context.Context, app *Application, conn *Conn, payload []byte) error {
	d := wire.NewDecoder(payload)
	count, err := d.Uint8()
	if err != nil {
		return err
	}
	snap := app.Catalog.Current()
	for i := 0; i < int(count); i++ {
		ctRaw, err := d.Uint8()
		if err != nil {
			return err
		}
		ct := content.Type(ctRaw)
		wireBytes, err := d.Bytes(4)
		if err != nil {
			return err
		}
		if !ct.Valid() {
			continue
		}
		var arr [4]byte
		copy(arr[:], wireBytes)
		uid := content.DecodeUniqueID(ct, arr)

		e, ok := snap.ByUniqueID(ct, uid)
		if !ok {
			continue
		}
		if err := app.sendEntry(conn, e); err != nil {
			return err
		}
	}
	return nil
}

func handleClientInfoExtIDMD5(_ context.Context, app *Application, conn *Conn, payload []byte) error {
	d := wire.NewDecoder(payload)
	count, err := d.Uint8()
	if err != nil {
		return err
	}
	snap := app.Catalog.Current()
	for i := 0; i < int(count); i++ {
		ctRaw, err := d.Uint8()
		if err != nil {
			return err
		}
		ct := content.Type(ctRaw)
		wireBytes, err := d.Bytes(4)
		if err != nil {
			return err
		}
		md5Bytes, err := d.Bytes(16)
		if err != nil {
			return err
		}
		if !ct.Valid() {
			continue
		}
		var arr [4]byte
		copy(arr[:], wireBytes)
		uid := content.DecodeUniqueID(ct, arr)
		var md5 content.MD5
		copy(md5[:], md5Bytes)

		e, ok := snap.ByUniqueIDAndMD5Sum(ct, uid, md5)
		if !ok {
			continue
		}
		if err := app.sendEntry(conn, e); err != nil {
			return err
		}
	}
	return nil
}

func handleClientContent(ctx context.Context, app *Application, conn *Conn, payload []byte) error {
	d := wire.NewDecoder(payload)
	count, err := d.Uint16()
	if err != nil {
		return err
	}
	snap := app.Catalog.Current()
	for i := 0; i < int(count); i++ {
		id, err := d.Uint32()
		if err != nil {
			return err
		}
		e, ok := snap.ByContentID(id)
		if !ok {
			continue
		}
		if err := app.downloadEntry(ctx, conn, e); err != nil {
			return err
		}
	}
	return nil
}

// downloadEntry streams one content entry's blob as a SERVER_CONTENT
// header followed by data frames chunked at MTU-3 bytes, terminated by an
// empty frame (spec.md §4.6, §6 "SERVER_CONTENT").
func (a *Application) downloadEntry(ctx context.Context, conn *Conn, e *content.Entry) error {
	a.Metrics.DownloadStarted()

	stream, err := a.Storage.OpenStream(ctx, e)
	if err != nil {
		a.Metrics.DownloadFailed()
		if cos.IsErrNotFound(err) {
			// The index promised this blob but the backend doesn't have it:
			// a catalog/storage drift, not a transient I/O error, so it's
			// worth its own log line rather than blending into generic
			// storage failures.
			nlog.Warningf("server: %v", err)
			return err
		}
		return fmt.Errorf("server: opening stream for content id %d: %w", e.ContentID, err)
	}
	defer stream.Close()

	filename := safeid.Filename(e.UniqueID.Hex(), e.Name, e.Version) + ".tar.gz"
	header := wire.NewEncoder(wire.PacketServerContent)
	header.Uint8(uint8(e.ContentType))
	header.Uint32(e.ContentID)
	header.Uint32(e.FileSize)
	header.String(filename)
	headerFrame, err := header.Finish()
	if err != nil {
		a.Metrics.DownloadFailed()
		return fmt.Errorf("server: encoding SERVER_CONTENT header: %w", err)
	}
	if err := conn.Write(headerFrame); err != nil {
		return err
	}

	const chunkSize = wire.MTU - 3
	buf := make([]byte, chunkSize)
	var sent int64

	for !stream.EOF() {
		n, readErr := stream.Read(buf)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			a.Metrics.DownloadFailed()
			if errors.Is(readErr, storage.ErrStreamRead) {
				return ErrSocketClosed
			}
			return fmt.Errorf("server: streaming content id %d: %w", e.ContentID, readErr)
		}
		if n > 0 {
			data := wire.NewEncoder(wire.PacketServerContent)
			data.Bytes(buf[:n])
			frame, err := data.Finish()
			if err != nil {
				a.Metrics.DownloadFailed()
				return fmt.Errorf("server: framing content id %d: %w", e.ContentID, err)
			}
			if err := conn.Write(frame); err != nil {
				return err
			}
			sent += int64(n)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
	}

	terminator := wire.NewEncoder(wire.PacketServerContent)
	frame, err := terminator.Finish()
	if err != nil {
		return err
	}
	if err := conn.Write(frame); err != nil {
		return err
	}

	a.Metrics.DownloadCompleted(sent)
	return nil
}
