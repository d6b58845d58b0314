// Package v1 contains messages defined in stats.proto.
package v1

import "github.com/golang/protobuf/proto"

// Snapshot is the state of a ring block buffer at a moment.
type Snapshot struct {
	Capacity             int64    `protobuf:"varint,1,opt,name=capacity,proto3" json:"capacity,omitempty"`
	BlockMax             int64    `protobuf:"varint,2,opt,name=block_max,json=blockMax,proto3" json:"block_max,omitempty"`
	Live                 int64    `protobuf:"varint,3,opt,name=live,proto3" json:"live,omitempty"`
	Inited               int64    `protobuf:"varint,4,opt,name=inited,proto3" json:"inited,omitempty"`
	Put                  int64    `protobuf:"varint,5,opt,name=put,proto3" json:"put,omitempty"`
	Got                  int64    `protobuf:"varint,6,opt,name=got,proto3" json:"got,omitempty"`
	UsedBytes            int64    `protobuf:"varint,7,opt,name=used_bytes,json=usedBytes,proto3" json:"used_bytes,omitempty"`
	AllocOk              uint64   `protobuf:"varint,8,opt,name=alloc_ok,json=allocOk,proto3" json:"alloc_ok,omitempty"`
	AllocNoBlock         uint64   `protobuf:"varint,9,opt,name=alloc_no_block,json=allocNoBlock,proto3" json:"alloc_no_block,omitempty"`
	AllocNoSpace         uint64   `protobuf:"varint,10,opt,name=alloc_no_space,json=allocNoSpace,proto3" json:"alloc_no_space,omitempty"`
	DroppedFrames        uint64   `protobuf:"varint,11,opt,name=dropped_frames,json=droppedFrames,proto3" json:"dropped_frames,omitempty"`
	TimestampNs          int64    `protobuf:"varint,12,opt,name=timestamp_ns,json=timestampNs,proto3" json:"timestamp_ns,omitempty"`
	Source               string   `protobuf:"bytes,13,opt,name=source,proto3" json:"source,omitempty"`
	XXX_NoUnkeyedLiteral struct{} `json:"-"`
	XXX_unrecognized     []byte   `json:"-"`
	XXX_sizecache        int32    `json:"-"`
}

func (m *Snapshot) Reset()         { *m = Snapshot{} }
func (m *Snapshot) String() string { return proto.CompactTextString(m) }
func (*Snapshot) ProtoMessage()    {}

func (m *Snapshot) GetCapacity() int64 {
	if m != nil {
		return m.Capacity
	}
	return 0
}

func (m *Snapshot) GetLive() int64 {
	if m != nil {
		return m.Live
	}
	return 0
}

func (m *Snapshot) GetUsedBytes() int64 {
	if m != nil {
		return m.UsedBytes
	}
	return 0
}

func (m *Snapshot) GetDroppedFrames() uint64 {
	if m != nil {
		return m.DroppedFrames
	}
	return 0
}

func (m *Snapshot) GetSource() string {
	if m != nil {
		return m.Source
	}
	return ""
}

func init() {
	proto.RegisterType((*Snapshot)(nil), "rbb.v1.Snapshot")
}
