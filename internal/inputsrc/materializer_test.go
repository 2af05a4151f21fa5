package inputsrc

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/mmenanno/gopar/internal/diskbuffer"
)

func TestParsePositionalNoSeparator(t *testing.T) {
	template, isCmd, groups, err := ParsePositional([]string{"echo", "{}"})
	if err != nil {
		t.Fatalf("ParsePositional: %v", err)
	}
	if template != "echo {}" || isCmd || groups != nil {
		t.Fatalf("got template=%q isCmd=%v groups=%v", template, isCmd, groups)
	}
}

func TestParsePositionalInputsAreCommands(t *testing.T) {
	_, isCmd, groups, err := ParsePositional([]string{":::", "echo a", "echo b"})
	if err != nil {
		t.Fatalf("ParsePositional: %v", err)
	}
	if !isCmd {
		t.Fatal("expected inputsAreCommands")
	}
	if len(groups) != 1 || len(groups[0].items) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestPermuteRightmostFastest(t *testing.T) {
	lists := [][]string{{"a", "b"}, {"1", "2"}}
	got := Permute(lists)
	want := []string{"a 1", "a 2", "b 1", "b 2"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Permute = %v, want %v", got, want)
	}
}

func TestPermuteThreeLists(t *testing.T) {
	lists := [][]string{{"a", "b"}, {"x"}, {"1", "2", "3"}}
	got := Permute(lists)
	if len(got) != 6 {
		t.Fatalf("expected 6 records, got %d: %v", len(got), got)
	}
	if got[0] != "a x 1" || got[len(got)-1] != "b x 3" {
		t.Fatalf("unexpected ordering: %v", got)
	}
}

func TestBatchPacking(t *testing.T) {
	records := []string{"1", "2", "3", "4", "5"}
	got := Batch(records, 2)
	want := []string{"1 2", "3 4", "5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Batch = %v, want %v", got, want)
	}
}

func TestBatchNoop(t *testing.T) {
	records := []string{"1", "2", "3"}
	if got := Batch(records, 0); !reflect.DeepEqual(got, records) {
		t.Fatalf("Batch(maxArgs=0) = %v", got)
	}
	if got := Batch(records, 1); !reflect.DeepEqual(got, records) {
		t.Fatalf("Batch(maxArgs=1) = %v", got)
	}
}

func TestZipAppendTruncatesToShorter(t *testing.T) {
	dir := t.TempDir()
	_, _, ninputs, err := Materialize(
		[]string{"echo", ":::", "a", "b", ":::+", "1", "2", "3"},
		0, strings.NewReader(""), mustBuffer(t, dir))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if ninputs != 2 {
		t.Fatalf("ninputs = %d, want 2", ninputs)
	}
}

func TestMaterializeWritesRecordsInOrder(t *testing.T) {
	dir := t.TempDir()
	buf := mustBuffer(t, dir)
	template, isCmd, ninputs, err := Materialize(
		[]string{"echo", ":::", "a", "b", "c"},
		0, strings.NewReader(""), buf)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if template != "echo" || isCmd {
		t.Fatalf("template=%q isCmd=%v", template, isCmd)
	}
	if ninputs != 3 {
		t.Fatalf("ninputs = %d, want 3", ninputs)
	}

	data := readFile(t, buf.Path())
	if data != "a\nb\nc\n" {
		t.Fatalf("queue contents = %q", data)
	}
}

func TestMaterializeStdinFallback(t *testing.T) {
	dir := t.TempDir()
	buf := mustBuffer(t, dir)
	_, _, ninputs, err := Materialize(
		[]string{"echo", "{}"},
		0, strings.NewReader("x\ny\n"), buf)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if ninputs != 2 {
		t.Fatalf("ninputs = %d, want 2", ninputs)
	}
	if data := readFile(t, buf.Path()); data != "x\ny\n" {
		t.Fatalf("queue contents = %q", data)
	}
}

func TestMaterializeFileOfInputs(t *testing.T) {
	dir := t.TempDir()
	inputFile := filepath.Join(dir, "names.txt")
	if err := os.WriteFile(inputFile, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	buf := mustBuffer(t, dir)
	_, _, ninputs, err := Materialize(
		[]string{"echo", "::::", inputFile},
		0, strings.NewReader(""), buf)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if ninputs != 3 {
		t.Fatalf("ninputs = %d, want 3", ninputs)
	}
}

func TestReadStdin(t *testing.T) {
	got, err := ReadStdin(strings.NewReader("one\ntwo\n"))
	if err != nil {
		t.Fatalf("ReadStdin: %v", err)
	}
	want := []string{"one", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadStdin = %v, want %v", got, want)
	}
}

func mustBuffer(t *testing.T, dir string) *diskbuffer.DiskBuffer {
	t.Helper()
	buf, err := diskbuffer.New(filepath.Join(dir, "queue.txt"), 4096)
	if err != nil {
		t.Fatalf("diskbuffer.New: %v", err)
	}
	t.Cleanup(func() { buf.Delete() })
	return buf
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return string(data)
}
