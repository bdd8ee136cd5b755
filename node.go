package stacks

import (
	"io/fs"
	"time"
)

// node describes a namespace entry. It implements fs.FileInfo and
// fs.DirEntry.
type node struct {
	name string
	mode fs.FileMode
	size int64
}

var (
	_ fs.FileInfo = (*node)(nil)
	_ fs.DirEntry = (*node)(nil)
)

func newFileNode(name string, size int64) *node {
	return &node{name: name, mode: 0o444, size: size}
}

func newDirNode(name string) *node {
	return &node{name: name, mode: fs.ModeDir | 0o555}
}

func (n *node) Name() string               { return n.name }
func (n *node) Size() int64                { return n.size }
func (n *node) Mode() fs.FileMode          { return n.mode }
func (n *node) ModTime() time.Time         { return time.Time{} }
func (n *node) IsDir() bool                { return n.mode.IsDir() }
func (n *node) Sys() any                   { return nil }
func (n *node) Type() fs.FileMode          { return n.mode.Type() }
func (n *node) Info() (fs.FileInfo, error) { return n, nil }
