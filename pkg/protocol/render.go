package protocol

import "github.com/vango-dev/dragula/pkg/vdom"

// Child is one element child of a rendered container.
type Child struct {
	HID  string
	Key  string
	Tag  string
	Text string
}

// Render is the full element child list of one container. Clients replace
// the container's children wholesale, reusing DOM nodes by HID.
type Render struct {
	Container string
	Children  []Child
}

// RenderFrame carries the containers redrawn by one server step.
//
// Wire format:
//
//	[Seq: varint][Count: varint]{[Container: string][N: varint]{[HID][Key][Tag][Text]}}
type RenderFrame struct {
	Seq        uint64
	Containers []Render
}

// RenderOf captures the element children of container.
func RenderOf(container *vdom.VNode) Render {
	r := Render{Container: container.HID}
	for _, c := range container.ElementChildren() {
		r.Children = append(r.Children, Child{
			HID:  c.HID,
			Key:  c.Key,
			Tag:  c.Tag,
			Text: c.TextContent(),
		})
	}
	return r
}

// EncodeRenderFrame encodes a RenderFrame to bytes.
func EncodeRenderFrame(rf *RenderFrame) []byte {
	e := NewEncoder()
	e.WriteUvarint(rf.Seq)
	e.WriteUvarint(uint64(len(rf.Containers)))
	for _, r := range rf.Containers {
		e.WriteString(r.Container)
		e.WriteUvarint(uint64(len(r.Children)))
		for _, c := range r.Children {
			e.WriteString(c.HID)
			e.WriteString(c.Key)
			e.WriteString(c.Tag)
			e.WriteString(c.Text)
		}
	}
	return e.Bytes()
}

// DecodeRenderFrame decodes a RenderFrame from bytes.
func DecodeRenderFrame(data []byte) (*RenderFrame, error) {
	d := NewDecoder(data)
	rf := &RenderFrame{}
	var err error

	if rf.Seq, err = d.ReadUvarint(); err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	rf.Containers = make([]Render, count)
	for i := range rf.Containers {
		r := &rf.Containers[i]
		if r.Container, err = d.ReadString(); err != nil {
			return nil, err
		}
		n, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			r.Children = make([]Child, n)
		}
		for j := range r.Children {
			c := &r.Children[j]
			for _, dst := range []*string{&c.HID, &c.Key, &c.Tag, &c.Text} {
				if *dst, err = d.ReadString(); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return rf, nil
}
