// Copyright 2015 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/timely-go/timely/changebatch"
	"github.com/timely-go/timely/order/epoch"
	"github.com/timely-go/timely/pointstamp"
)

// ProgressUpdate is one pointstamp delta, flattened for the wire. Only a
// dataflow timestamped with epoch.Time — the root scope's timestamp type
// in this runtime — is ever broadcast across process boundaries; a
// nested Subgraph's refined Product timestamp never leaves the worker
// that holds it, so this encoding doesn't need to be generic over
// order.Timestamp.
type ProgressUpdate struct {
	Operator  int32
	Port      int32
	Kind      pointstamp.Port
	Timestamp epoch.Time
	Delta     int64
}

// ProgressMessage is one dataflow's worth of progress, the atomic unit a
// worker broadcasts: every update in it lands or none do.
type ProgressMessage struct {
	DataflowID int32
	Updates    []ProgressUpdate
}

var _ Bytesable = ProgressMessage{}

const progressRecordSize = 4 + 4 + 1 + 8 + 8

// IntoBytes implements Bytesable.
func (m ProgressMessage) IntoBytes() ([]byte, error) {
	out := make([]byte, 8+len(m.Updates)*progressRecordSize)
	binary.LittleEndian.PutUint32(out[0:4], uint32(m.DataflowID))
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(m.Updates)))

	pos := 8
	for _, u := range m.Updates {
		binary.LittleEndian.PutUint32(out[pos:pos+4], uint32(u.Operator))
		binary.LittleEndian.PutUint32(out[pos+4:pos+8], uint32(u.Port))
		if u.Kind {
			out[pos+8] = 1
		}
		binary.LittleEndian.PutUint64(out[pos+9:pos+17], uint64(u.Timestamp))
		binary.LittleEndian.PutUint64(out[pos+17:pos+25], uint64(u.Delta))
		pos += progressRecordSize
	}
	return out, nil
}

// DecodeProgressMessage reverses ProgressMessage.IntoBytes.
func DecodeProgressMessage(data []byte) (ProgressMessage, error) {
	if len(data) < 8 {
		return ProgressMessage{}, fmt.Errorf("wire: short progress message header")
	}
	id := int32(binary.LittleEndian.Uint32(data[0:4]))
	n := binary.LittleEndian.Uint32(data[4:8])

	pos := 8
	updates := make([]ProgressUpdate, 0, n)
	for i := uint32(0); i < n; i++ {
		if pos+progressRecordSize > len(data) {
			return ProgressMessage{}, fmt.Errorf("wire: truncated progress message at record %d", i)
		}
		rec := data[pos : pos+progressRecordSize]
		updates = append(updates, ProgressUpdate{
			Operator:  int32(binary.LittleEndian.Uint32(rec[0:4])),
			Port:      int32(binary.LittleEndian.Uint32(rec[4:8])),
			Kind:      rec[8] != 0,
			Timestamp: epoch.Time(binary.LittleEndian.Uint64(rec[9:17])),
			Delta:     int64(binary.LittleEndian.Uint64(rec[17:25])),
		})
		pos += progressRecordSize
	}
	return ProgressMessage{DataflowID: id, Updates: updates}, nil
}

// FromChangeBatch flattens a ChangeBatch of Pointstamp deltas (as
// produced by a dataflow's reachability.Tracker) into a ProgressMessage
// for dataflowID. Every update's Timestamp must be an epoch.Time.
func FromChangeBatch(dataflowID int, cb *changebatch.ChangeBatch[pointstamp.Pointstamp]) (ProgressMessage, error) {
	msg := ProgressMessage{DataflowID: int32(dataflowID)}
	for _, u := range cb.Updates() {
		t, ok := u.Key.Timestamp.(epoch.Time)
		if !ok {
			return ProgressMessage{}, fmt.Errorf("wire: non-epoch.Time timestamp %v cannot cross the wire", u.Key.Timestamp)
		}
		msg.Updates = append(msg.Updates, ProgressUpdate{
			Operator:  int32(u.Key.Location.Operator),
			Port:      int32(u.Key.Location.Port),
			Kind:      u.Key.Location.Kind,
			Timestamp: t,
			Delta:     u.Delta,
		})
	}
	return msg, nil
}

// ToChangeBatch reverses FromChangeBatch.
func (m ProgressMessage) ToChangeBatch() *changebatch.ChangeBatch[pointstamp.Pointstamp] {
	cb := changebatch.New[pointstamp.Pointstamp]()
	for _, u := range m.Updates {
		loc := pointstamp.Location{Operator: int(u.Operator), Port: int(u.Port), Kind: u.Kind}
		cb.Update(pointstamp.Pointstamp{Location: loc, Timestamp: u.Timestamp}, u.Delta)
	}
	return cb
}
