// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package psecs

import (
	"context"
	"encoding/binary"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/otel/trace"

	"github.com/packetd/secscodec/common"
	"github.com/packetd/secscodec/internal/bufpool"
	"github.com/packetd/secscodec/internal/metrics"
	"github.com/packetd/secscodec/logger"
)

// stage identifies where the pipeline currently sits within one item's
// header/length/payload, or at the top of a new frame.
type stage uint8

const (
	stageFrameLength stage = iota
	stageHeader
	stageItemFormat
	stageItemLength
	stageItemPayload
)

// listBuilder accumulates the children of one in-progress List item. The
// Decoder keeps a stack of these, one per nesting level currently open.
type listBuilder struct {
	capacity int
	children []*Item
}

func (b *listBuilder) full() bool {
	return len(b.children) >= b.capacity
}

// OnControl is invoked once a complete HSMS control message's header has
// been decoded (SType != 0). Control messages never carry an item tree.
type OnControl func(h MessageHeader)

// OnData is invoked once a complete SECS-II data message has been
// decoded, whether it carries an item tree or is header-only.
type OnData func(msg SecsMessage)

// Decoder is a single-owner, non-reentrant streaming SECS-II/HSMS parser.
// It must be driven by exactly one goroutine: BufferWriteSlice and Decode
// are meant to alternate in a read loop, with no concurrent calls.
//
// A Decoder is not reused across sessions; build a new one (or call
// Reset) per connection.
type Decoder struct {
	id string

	onControl OnControl
	onData    OnData
	tracer    trace.Tracer

	bb                    *bytebufferpool.ByteBuffer
	buf                   []byte
	writeOffset           int
	decodeIndex           int
	previousRemainedCount int

	step              stage
	messageDataLength int
	msgHeader         MessageHeader

	format     SecsFormat
	lengthBits int
	itemLength int

	stack []*listBuilder

	broken    bool
	brokenErr error
}

// Option configures a Decoder at construction time.
type Option func(*Decoder)

// WithInitialBufferBytes sets the receive buffer's starting capacity.
// Defaults to common.ReadWriteBlockSize if unset or non-positive.
func WithInitialBufferBytes(n int) Option {
	return func(d *Decoder) {
		if n > 0 {
			d.buf = d.resliceBuf(n)
		}
	}
}

// WithTracer attaches an OpenTelemetry tracer; when set, every Decode call
// is wrapped in a span. Omit it (the default) to skip tracing entirely.
func WithTracer(t trace.Tracer) Option {
	return func(d *Decoder) {
		d.tracer = t
	}
}

// NewDecoder builds a Decoder that invokes onControl for HSMS control
// messages and onData for SECS-II data messages. Its receive buffer comes
// from internal/bufpool; call Close when the owning session ends to
// return it.
func NewDecoder(onControl OnControl, onData OnData, opts ...Option) *Decoder {
	d := &Decoder{
		id:        uuid.NewString(),
		onControl: onControl,
		onData:    onData,
		bb:        bufpool.Acquire(),
	}
	d.buf = d.resliceBuf(common.ReadWriteBlockSize)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// resliceBuf returns n bytes backed by the pooled buffer's existing array
// when it already has enough capacity (reusing a previous tenant's
// allocation), or a freshly allocated slice otherwise.
func (d *Decoder) resliceBuf(n int) []byte {
	if cap(d.bb.B) >= n {
		return d.bb.B[:n]
	}
	return make([]byte, n)
}

// Reset clears all in-progress frame/item state and the receive buffer,
// returning the Decoder to its just-constructed state. Use between
// sessions instead of allocating a new Decoder.
func (d *Decoder) Reset() {
	d.writeOffset = 0
	d.decodeIndex = 0
	d.previousRemainedCount = 0
	d.step = stageFrameLength
	d.messageDataLength = 0
	d.msgHeader = MessageHeader{}
	d.stack = nil
	d.broken = false
	d.brokenErr = nil
}

// Close returns the receive buffer to internal/bufpool. The Decoder must
// not be used afterwards.
func (d *Decoder) Close() {
	if d.bb == nil {
		return
	}
	d.bb.B = d.buf
	bufpool.Release(d.bb)
	d.bb = nil
	d.buf = nil
}

// BufferCap reports the current capacity of the internal receive buffer,
// for callers that want to expose it (e.g. as a gauge).
func (d *Decoder) BufferCap() int {
	return cap(d.buf)
}

// BufferWriteSlice returns the region of the internal receive buffer the
// caller should read new bytes into next, sized to hold at least need
// bytes past whatever is already buffered. The caller writes into the
// returned slice (e.g. via net.Conn.Read) and reports how much it wrote
// to Decode.
func (d *Decoder) BufferWriteSlice(need int) []byte {
	if need <= 0 {
		need = 1
	}
	if cap(d.buf)-d.writeOffset < need {
		d.grow(need)
	}
	return d.buf[d.writeOffset:cap(d.buf)]
}

func (d *Decoder) grow(need int) {
	remained := d.writeOffset - d.decodeIndex
	d.resize(remained, need)
}

// resize reallocates the receive buffer to hold at least remained+need
// bytes (doubled, or messageDataLength/2 if that's larger, to amortize
// repeated growth against a single oversized frame), compacting the
// unconsumed region down to index 0 in the process.
func (d *Decoder) resize(remained, need int) {
	required := remained + need
	newCap := required * 2
	if half := d.messageDataLength / 2; half > newCap {
		newCap = half
	}
	newBuf := make([]byte, newCap)
	copy(newBuf, d.buf[d.decodeIndex:d.decodeIndex+remained])
	logger.Debugf("psecs decoder %s: growing receive buffer from %d to %d bytes", d.id, cap(d.buf), newCap)
	metrics.BufferResizes.Inc()
	d.buf = newBuf
	d.writeOffset = remained
	d.decodeIndex = 0
}

// Decode reports writtenCount new bytes (written into the slice last
// returned by BufferWriteSlice) to the decoder, running the pipeline as
// far as it will go and invoking onControl/onData for every message it
// completes along the way. It returns whether the decoder needs more
// bytes to make further progress, and a non-nil error for a protocol
// violation (BadFormatCode, FrameCorrupt, or ItemOversize for a numeric
// payload that is not a whole number of elements) — per §7, the
// Decoder is unusable after an error and the caller should tear down the
// session.
func (d *Decoder) Decode(ctx context.Context, writtenCount int) (needMore bool, err error) {
	if d.broken {
		return false, d.brokenErr
	}

	if d.tracer != nil {
		var span trace.Span
		ctx, span = d.tracer.Start(ctx, "psecs.Decode")
		defer span.End()
		_ = ctx
	}

	d.writeOffset += writtenCount

	var need int
	for {
		length := d.writeOffset - d.decodeIndex
		next, n, stepErr := d.runStage(length)
		if stepErr != nil {
			d.broken = true
			d.brokenErr = stepErr
			logger.Errorf("psecs decoder %s: %s", d.id, stepErr)
			metrics.DecodeErrors.WithLabelValues(metrics.ErrorKind(causeName(stepErr))).Inc()
			return false, stepErr
		}
		if next == d.step {
			need = n
			break
		}
		d.step = next
	}

	d.rebalance(need)
	// messageDataLength is what's left of the current frame's declared
	// body; it's back to 0 once a frame has fully emitted and the
	// pipeline is sitting at stageFrameLength waiting for the next one.
	// Bytes still buffered at that point (a partial length prefix) also
	// mean a frame is in progress.
	return d.messageDataLength > 0 || d.writeOffset > d.decodeIndex, nil
}

// rebalance implements the buffer bookkeeping from §4.2: shrink back to
// empty between frames, or compact/grow to make room for the next need
// while a frame is still in flight.
func (d *Decoder) rebalance(need int) {
	remained := d.writeOffset - d.decodeIndex
	if remained == 0 {
		d.writeOffset = 0
		d.decodeIndex = 0
		d.previousRemainedCount = 0
		if need > cap(d.buf) {
			d.buf = make([]byte, need*2)
			metrics.BufferResizes.Inc()
		}
		return
	}

	required := remained + need
	switch {
	case required > cap(d.buf):
		d.resize(remained, need)
	case required > cap(d.buf)-d.decodeIndex:
		copy(d.buf, d.buf[d.decodeIndex:d.writeOffset])
		logger.Debugf("psecs decoder %s: compacting receive buffer, %d bytes carried over", d.id, remained)
		d.writeOffset = remained
		d.decodeIndex = 0
	}
	d.previousRemainedCount = remained
}

// runStage executes the current stage once against the length bytes
// available from decodeIndex. It returns the next stage to run (equal to
// the current stage if more bytes are needed, in which case need reports
// how many) or a protocol error.
func (d *Decoder) runStage(length int) (next stage, need int, err error) {
	switch d.step {
	case stageFrameLength:
		return d.stageFrameLength(length)
	case stageHeader:
		return d.stageHeader(length)
	case stageItemFormat:
		return d.stageItemFormat(length)
	case stageItemLength:
		return d.stageItemLength(length)
	case stageItemPayload:
		return d.stageItemPayload(length)
	}
	return d.step, 0, newError("unreachable decoder stage %d", d.step)
}

func (d *Decoder) stageFrameLength(length int) (stage, int, error) {
	const n = 4
	if length < n {
		return stageFrameLength, n - length, nil
	}
	d.messageDataLength = int(binary.BigEndian.Uint32(d.buf[d.decodeIndex : d.decodeIndex+n]))
	d.decodeIndex += n
	return stageHeader, 0, nil
}

func (d *Decoder) stageHeader(length int) (stage, int, error) {
	if length < headerLength {
		return stageHeader, headerLength - length, nil
	}
	d.msgHeader = ParseHeader(d.buf[d.decodeIndex : d.decodeIndex+headerLength])
	d.decodeIndex += headerLength
	d.messageDataLength -= headerLength
	if d.messageDataLength < 0 {
		return stageHeader, 0, ErrFrameCorrupt
	}

	if d.messageDataLength == 0 {
		d.emitHeaderOnly()
		return stageFrameLength, 0, nil
	}

	remaining := d.writeOffset - d.decodeIndex
	if remaining >= d.messageDataLength {
		item, consumed, err := parseItemTree(d.buf[d.decodeIndex : d.decodeIndex+d.messageDataLength])
		if err != nil {
			return stageHeader, 0, err
		}
		d.decodeIndex += consumed
		d.messageDataLength -= consumed
		d.emitData(item)
		return stageFrameLength, 0, nil
	}
	return stageItemFormat, 0, nil
}

func (d *Decoder) stageItemFormat(length int) (stage, int, error) {
	if length < 1 {
		return stageItemFormat, 1 - length, nil
	}
	fb := d.buf[d.decodeIndex]
	d.decodeIndex++
	d.messageDataLength--
	if d.messageDataLength < 0 {
		return stageItemFormat, 0, ErrFrameCorrupt
	}

	format := SecsFormat(fb &^ 0x03)
	lengthBits := int(fb & 0x03)
	if _, ok := formatTable[format]; !ok || lengthBits == 0 {
		return stageItemFormat, 0, ErrBadFormatCode
	}
	d.format = format
	d.lengthBits = lengthBits
	return stageItemLength, 0, nil
}

func (d *Decoder) stageItemLength(length int) (stage, int, error) {
	if length < d.lengthBits {
		return stageItemLength, d.lengthBits - length, nil
	}
	n := 0
	for _, c := range d.buf[d.decodeIndex : d.decodeIndex+d.lengthBits] {
		n = n<<8 | int(c)
	}
	d.decodeIndex += d.lengthBits
	d.messageDataLength -= d.lengthBits
	if d.messageDataLength < 0 {
		return stageItemLength, 0, ErrFrameCorrupt
	}
	d.itemLength = n
	return stageItemPayload, 0, nil
}

func (d *Decoder) stageItemPayload(length int) (stage, int, error) {
	if d.format == FormatList {
		if d.itemLength > 255 {
			return stageItemPayload, 0, ErrFrameCorrupt
		}
		if d.itemLength == 0 {
			return d.completeItem(emptyList)
		}
		d.stack = append(d.stack, &listBuilder{capacity: d.itemLength})
		return stageItemFormat, 0, nil
	}

	if length < d.itemLength {
		return stageItemPayload, d.itemLength - length, nil
	}
	item, err := decodeScalarPayload(d.format, d.buf[d.decodeIndex:d.decodeIndex+d.itemLength])
	if err != nil {
		return stageItemPayload, 0, err
	}
	d.decodeIndex += d.itemLength
	d.messageDataLength -= d.itemLength
	if d.messageDataLength < 0 {
		return stageItemPayload, 0, ErrFrameCorrupt
	}
	return d.completeItem(item)
}

// completeItem folds a freshly decoded item into the in-progress list
// stack, cascading List completions up to the root, and emits the message
// once the root item is done.
func (d *Decoder) completeItem(item *Item) (stage, int, error) {
	for {
		if len(d.stack) == 0 {
			d.emitData(item)
			return stageFrameLength, 0, nil
		}
		top := d.stack[len(d.stack)-1]
		top.children = append(top.children, item)
		if !top.full() {
			return stageItemFormat, 0, nil
		}
		d.stack = d.stack[:len(d.stack)-1]
		item = L(top.children)
	}
}

func (d *Decoder) emitHeaderOnly() {
	if d.msgHeader.IsControl() {
		metrics.FramesDecoded.WithLabelValues("control").Inc()
		if d.onControl != nil {
			d.onControl(d.msgHeader)
		}
		return
	}
	metrics.FramesDecoded.WithLabelValues("data").Inc()
	if d.onData != nil {
		d.onData(SecsMessage{Header: d.msgHeader})
	}
}

func (d *Decoder) emitData(root *Item) {
	metrics.FramesDecoded.WithLabelValues("data").Inc()
	if d.onData != nil {
		d.onData(SecsMessage{Header: d.msgHeader, Root: root})
	}
}

// causeName maps a stage error to a short, stable label value for
// DecodeErrors. Falls back to "other" for anything unrecognized (there
// shouldn't be any - runStage only ever returns the five sentinels).
func causeName(err error) string {
	switch {
	case stderrors.Is(err, ErrBadFormatCode):
		return "bad_format_code"
	case stderrors.Is(err, ErrFrameCorrupt):
		return "frame_corrupt"
	case stderrors.Is(err, ErrListOverflow):
		return "list_overflow"
	case stderrors.Is(err, ErrItemOversize):
		return "item_oversize"
	case stderrors.Is(err, ErrWrongFormat):
		return "wrong_format"
	default:
		return "other"
	}
}
