// SPDX-License-Identifier: MIT

package internal

func NewTextMessage(text string) *Message {
	return &Message{payload: []byte(text)}
}

func NewBinaryMessage(data []byte) *Message {
	return &Message{payload: data, binary: true}
}

func (m *Message) IsText() bool {
	return !m.binary
}

func (m *Message) IsBinary() bool {
	return m.binary
}

func (m *Message) Bytes() []byte {
	return m.payload
}

func (m *Message) String() string {
	return string(m.payload)
}
