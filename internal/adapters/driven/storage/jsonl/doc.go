// Package jsonl provides the default results store: one JSON object per
// trial, appended to a text file and fsynced before Append returns.
//
// The file is safe to read while a sweep is writing it. A crash part-way
// through a write leaves at most one torn final line, which readers ignore
// and the next writer truncates.
package jsonl
