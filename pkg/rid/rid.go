// Package rid defines the record identifier stored in index pages.
package rid

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

var bin = binary.LittleEndian

// Size is the encoded size of RID: 2 bytes of cluster id followed by
// 8 bytes of cluster position.
const Size = 10

// RID is the address of a stored record.
type RID struct {
	ClusterId       int16
	ClusterPosition int64
}

func New(clusterId int16, clusterPosition int64) RID {
	return RID{ClusterId: clusterId, ClusterPosition: clusterPosition}
}

// Put encodes r into the first Size bytes of buf.
func (r RID) Put(buf []byte) {
	bin.PutUint16(buf[0:2], uint16(r.ClusterId))
	bin.PutUint64(buf[2:10], uint64(r.ClusterPosition))
}

// Read decodes RID from the first Size bytes of buf.
func Read(buf []byte) RID {
	return RID{
		ClusterId:       int16(bin.Uint16(buf[0:2])),
		ClusterPosition: int64(bin.Uint64(buf[2:10])),
	}
}

func (r RID) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	r.Put(buf)
	return buf, nil
}

func (r *RID) UnmarshalBinary(d []byte) error {
	if len(d) < Size {
		return errors.Errorf("in-sufficient data for rid, %d bytes", len(d))
	}
	*r = Read(d)
	return nil
}

func (r RID) String() string {
	return fmt.Sprintf("#%d:%d", r.ClusterId, r.ClusterPosition)
}

// Parse reads RID written in the form returned by String.
func Parse(s string) (RID, error) {
	var r RID
	if _, err := fmt.Sscanf(s, "#%d:%d", &r.ClusterId, &r.ClusterPosition); err != nil {
		return RID{}, errors.Wrapf(err, "invalid rid '%s'", s)
	}
	if r.String() != s {
		return RID{}, errors.Errorf("invalid rid '%s'", s)
	}
	return r, nil
}
