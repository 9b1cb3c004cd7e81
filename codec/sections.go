package codec

import (
	"fmt"

	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/internal/wire"
)

// Section slices are laid out as [id][flags][payload]. A reader that does
// not know an id skips the slice unless flagCritical is set.
const flagCritical byte = 1 << 0

type sectionID byte

const (
	secGuaranteed    sectionID = 1
	secCrossBus      sectionID = 2
	secRemoteBrowse  sectionID = 3
	secRemoteGet     sectionID = 4
	secException     sectionID = 5
	secAudit         sectionID = 6
	secProperties    sectionID = 7
	secSystemContext sectionID = 8
	secBody          sectionID = 9
	secRouting       sectionID = 10
	secSubscription  sectionID = 11
)

// section describes how one kind of section slice is written and read.
// encode returns false when the envelope has nothing for the section.
type section struct {
	id       sectionID
	name     string
	critical bool
	since    ProtocolVersion
	encode   func(e *envelope.Envelope, w *wire.Writer) (bool, error)
	decode   func(d *decoder, r *wire.Reader, critical bool) error
}

// sections lists every known section in the order they are written
var sections = []section{
	{secGuaranteed, "guaranteed", true, V1, encodeGuaranteed, decodeGuaranteed},
	{secCrossBus, "crossBus", true, V1, encodeCrossBus, decodeCrossBus},
	{secRemoteBrowse, "remoteBrowse", true, V2, encodeRemoteBrowse, decodeRemoteBrowse},
	{secRemoteGet, "remoteGet", true, V2, encodeRemoteGet, decodeRemoteGet},
	{secException, "exception", false, V1, encodeException, decodeException},
	{secAudit, "audit", false, V3, encodeAudit, decodeAudit},
	{secProperties, "properties", true, V1, encodeProperties, decodeProperties},
	{secSystemContext, "systemContext", false, V3, encodeSystemContext, decodeSystemContext},
	{secBody, "body", true, V1, encodeBody, decodeBody},
	{secRouting, "routing", true, V1, encodeRouting, decodeRouting},
	{secSubscription, "subscription", true, V1, encodeSubscription, decodeSubscription},
}

var sectionsByID = func() map[sectionID]*section {
	m := make(map[sectionID]*section, len(sections))
	for i := range sections {
		m[sections[i].id] = &sections[i]
	}
	return m
}()

// fieldWriter collects optional fields of a section behind a presence mask
type fieldWriter struct {
	mask uint64
	body *wire.Writer
}

func newFieldWriter() *fieldWriter {
	return &fieldWriter{body: wire.NewWriter(64)}
}

// field marks bit present and returns the writer for its value
func (f *fieldWriter) field(bit uint) *wire.Writer {
	f.mask |= 1 << bit
	return f.body
}

func (f *fieldWriter) empty() bool {
	return f.mask == 0
}

func (f *fieldWriter) flush(w *wire.Writer) {
	w.PutUvarint(f.mask)
	w.PutRaw(f.body.Bytes())
}

// fieldMask reads a presence mask. Bits at or above known belong to a newer
// writer: they fail a critical section and are ignored otherwise, since
// their values follow every known field.
func fieldMask(r *wire.Reader, known uint, critical bool, name string) (uint64, error) {
	mask := r.Uvarint()
	if err := r.Err(); err != nil {
		return 0, err
	}
	if unknown := mask &^ (1<<known - 1); unknown != 0 && critical {
		return 0, fmt.Errorf("%s: unknown fields %#x", name, unknown)
	}
	return mask, nil
}

func has(mask uint64, bit uint) bool {
	return mask&(1<<bit) != 0
}
