// Package protocol implements the TCP wire framing, per-connection
// session state, and SDK XML command dispatch used by BoxPlayer-compatible
// clients such as HDPlayer.
package protocol

import (
	"fmt"

	"github.com/google/uuid"
)

// maxXMLReassemblyBytes bounds a single SDK command document's declared and
// accumulated length. Without this, a crafted CMD_SDK_CMD_ASK could declare
// an unbounded total and grow the reassembly buffer indefinitely one chunk
// at a time.
const maxXMLReassemblyBytes = 16 * 1024 * 1024

// maxFileTransferBytes bounds a single file transfer's declared size. A
// CMD_FILE_START_ASK claiming more than this is rejected outright rather
// than preallocated, since the size field is attacker-controlled.
const maxFileTransferBytes = 256 * 1024 * 1024

// FileTransfer tracks an in-progress file upload (CMD_FILE_START_ASK
// through CMD_FILE_END_ASK).
type FileTransfer struct {
	Filename     string
	ExpectedSize uint64
	FileType     uint16
	MD5          string
	Data         []byte
}

// Session holds the per-connection state for one HDPlayer TCP client: its
// session GUID, the XML reassembly buffer, and any active file transfer.
type Session struct {
	GUID string

	xmlBuffer   []byte
	xmlTotalLen int

	fileTransfer *FileTransfer
}

// NewSession allocates a session with a fresh random GUID.
func NewSession() *Session {
	return &Session{GUID: uuid.NewString()}
}

// AccumulateXML appends chunk to the reassembly buffer. A chunk with
// index 0 resets the buffer and records the expected total length — this
// intentionally does not special-case a stray mid-stream index-0 packet
// (one arriving after accumulation has already begun): receiving it
// silently truncates the buffer and restarts the total length exactly as
// observed in the reference client traffic, rather than rejecting it.
//
// A declared or accumulated length over maxXMLReassemblyBytes resets the
// buffer and returns an error instead of growing it further.
func (s *Session) AccumulateXML(chunk []byte, totalLen, index int) error {
	if index == 0 {
		s.xmlBuffer = s.xmlBuffer[:0]
		s.xmlTotalLen = totalLen
	}
	if totalLen < 0 || totalLen > maxXMLReassemblyBytes {
		s.xmlBuffer = nil
		s.xmlTotalLen = 0
		return fmt.Errorf("protocol: xml total length %d exceeds %d byte cap", totalLen, maxXMLReassemblyBytes)
	}
	s.xmlBuffer = append(s.xmlBuffer, chunk...)
	if len(s.xmlBuffer) > maxXMLReassemblyBytes {
		s.xmlBuffer = nil
		s.xmlTotalLen = 0
		return fmt.Errorf("protocol: xml reassembly buffer exceeded %d byte cap", maxXMLReassemblyBytes)
	}
	return nil
}

// XMLComplete reports whether a declared total length is pending and the
// accumulated buffer has reached it.
func (s *Session) XMLComplete() bool {
	return s.xmlTotalLen > 0 && len(s.xmlBuffer) >= s.xmlTotalLen
}

// TakeXML returns the reassembled XML document and resets the buffer.
func (s *Session) TakeXML() []byte {
	s.xmlTotalLen = 0
	out := s.xmlBuffer
	s.xmlBuffer = nil
	return out
}

// StartFileTransfer begins tracking a new upload, discarding any prior
// incomplete transfer. A declared size over maxFileTransferBytes is
// rejected outright rather than preallocated, since size is read directly
// off the wire.
func (s *Session) StartFileTransfer(filename string, size uint64, fileType uint16, md5 string) error {
	if size > maxFileTransferBytes {
		return fmt.Errorf("protocol: file transfer size %d exceeds %d byte cap", size, maxFileTransferBytes)
	}
	s.fileTransfer = &FileTransfer{
		Filename:     filename,
		ExpectedSize: size,
		FileType:     fileType,
		MD5:          md5,
		Data:         make([]byte, 0, size),
	}
	return nil
}

// AppendFileData appends a chunk to the active transfer, if any.
func (s *Session) AppendFileData(data []byte) {
	if s.fileTransfer == nil {
		return
	}
	s.fileTransfer.Data = append(s.fileTransfer.Data, data...)
}

// CompleteFileTransfer returns and clears the active transfer, or nil if
// none is in progress.
func (s *Session) CompleteFileTransfer() *FileTransfer {
	t := s.fileTransfer
	s.fileTransfer = nil
	return t
}
