package vm_test

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"

	"github.com/mna/wisp/internal/filetest"
	"github.com/mna/wisp/lang/vm"
)

var testUpdateCorpusTests = flag.Bool("test.update-corpus-tests", false, "If set, replace expected corpus test results with actual results.")

// runCorpus runs every .wisp fixture in testdata/in against a fresh VM and
// diffs its stdout/stderr against the golden files in testdata/out. It runs
// twice per fixture, once normally and once with stress GC on, so the
// corpus also serves as the "no dangling references under stress GC"
// regression the garbage collector must satisfy.
func runCorpus(t *testing.T, stressGC bool) {
	t.Helper()
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".wisp") {
		t.Run(fi.Name(), func(t *testing.T) {
			var out, errOut bytes.Buffer
			machine := vm.New()
			machine.Stdout = &out
			machine.Stderr = &errOut
			machine.StressGC = stressGC

			machine.InterpretFile(filepath.Join(srcDir, fi.Name()))

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateCorpusTests)
			filetest.DiffErrors(t, fi, errOut.String(), resultDir, testUpdateCorpusTests)
		})
	}
}

func TestCorpus(t *testing.T) {
	runCorpus(t, false)
}

func TestCorpusUnderStressGC(t *testing.T) {
	runCorpus(t, true)
}
