package runtime

import "encoding/binary"

// Internal wire formats for the synthesized messages the runtime posts to a
// supervisor's own mailbox. These never cross the public API surface; they
// exist purely so supervisor lifecycle notifications travel through the
// same opaque-byte-payload message path as everything else, rather than
// special-casing a side channel.

// encodeChildTerminated packs the terminated child's id and final status.
func encodeChildTerminated(id ID, status Status) []byte {
	buf := make([]byte, 9)
	binary.LittleEndian.PutUint32(buf[0:4], id.index)
	binary.LittleEndian.PutUint32(buf[4:8], id.generation)
	buf[8] = byte(status)
	return buf
}

func decodeChildTerminated(data []byte) (id ID, status Status, ok bool) {
	if len(data) < 9 {
		return ID{}, 0, false
	}
	id.index = binary.LittleEndian.Uint32(data[0:4])
	id.generation = binary.LittleEndian.Uint32(data[4:8])
	status = Status(data[8])
	return id, status, true
}

// encodeBackoffElapsed packs the index of the child slot pending restart.
func encodeBackoffElapsed(childIdx int) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(childIdx))
	return buf
}

func decodeBackoffElapsed(data []byte) (childIdx int, ok bool) {
	if len(data) < 4 {
		return 0, false
	}
	return int(binary.LittleEndian.Uint32(data)), true
}

// encodeStopRequest packs the terminal status a cross-thread StopAsync or
// FailAsync call wants applied once the request reaches the loop thread.
func encodeStopRequest(status Status) []byte {
	return []byte{byte(status)}
}

func decodeStopRequest(data []byte) (status Status, ok bool) {
	if len(data) < 1 {
		return 0, false
	}
	return Status(data[0]), true
}
