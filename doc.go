/*
Package sflmalloc implements a segregated free-list allocator over a single,
contiguous, monotonically growing memory region: a malloc-style
four-operation interface — allocate, release, resize, zero-allocate —
operating on 16-byte aligned payloads.

Blocks are tracked with boundary tags: a 4-byte header on every block, and a
4-byte footer on free blocks only (a "previous-free" bit in the header lets
allocated blocks skip the footer). Free blocks of a given size live in one
of 24 classes — 16 holding one exact size each, 8 holding power-of-two
ranges above 256 bytes — each a doubly linked list encoded as signed,
ALIGNMENT-scaled 4-byte relative offsets rather than 8-byte pointers, so the
minimum block size stays 16 bytes.

Allocate does a best-fit scan of the owning class and upward, splitting the
winner from the right if the residual is big enough to hold a block of its
own, and only grows the backing Region when no class yields a fit. Release
coalesces with both physical neighbors before reinserting. See DESIGN.md for
how each piece is grounded and SPEC_FULL.md for the full requirements this
package implements.

This package performs no locking; a single goroutine (or a caller-supplied
mutex around each public method) must own an Allocator for its lifetime.
*/
package sflmalloc
