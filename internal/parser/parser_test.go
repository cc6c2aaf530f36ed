package parser

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/camdumpdb/internal/models"
	"github.com/camdumpdb/internal/testutil"
	"github.com/camdumpdb/internal/textenc"
)

var update = flag.Bool("update", false, "rewrite golden files")

func dumpLines(lines ...string) []string {
	return lines
}

func provider(n string) string {
	return "== Camera Provider HAL legacy/0 (v2.5, remote) static info: " + n + " devices: =="
}

func deviceHeader(id string) string {
	return "  == Camera HAL device device@3.5/legacy/" + id + " (v3.5) static information: =="
}

func deviceFooter(id string) string {
	return "  == Camera HAL device device@3.5/legacy/" + id + " (v3.5) dumpState: =="
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func encode(t *testing.T, r *models.Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, models.EncodeJSON(&buf, r, 2))
	return buf.String()
}

func TestParseGolden(t *testing.T) {
	res, err := New().ParseFile(filepath.Join("testdata", "camera_dump.txt"))
	require.NoError(t, err)
	require.NoError(t, res.Err())

	got := encode(t, res.Report)
	golden := filepath.Join("testdata", "camera_dump.golden.json")
	if *update {
		require.NoError(t, os.WriteFile(golden, []byte(got), 0o644))
	}
	assert.Equal(t, string(readFixture(t, "camera_dump.golden.json")), got)

	assert.Equal(t, StateTerminated, res.State)
	assert.Equal(t, 3, res.ProcessedDevices)
	assert.Equal(t, textenc.UTF8, res.Encoding)
	assert.Equal(t, 1, res.DiagnosticCount(DiagDiscardedFields))
	assert.Equal(t, 2, res.DiagnosticCount(DiagCountMismatch))
	assert.Zero(t, res.DiagnosticCount(DiagOrphanValues))
}

func TestParseStableAcrossRuns(t *testing.T) {
	data := string(readFixture(t, "camera_dump.txt"))
	first := encode(t, New().ParseString(data).Report)
	for range 10 {
		assert.Equal(t, first, encode(t, New().ParseString(data).Report))
	}
}

func TestDeviceCountTermination(t *testing.T) {
	lines := dumpLines(
		provider("2"),
		deviceHeader("0"),
		"Resource cost: 100",
		deviceFooter("0"),
		deviceHeader("1"),
		"Resource cost: 50",
		deviceFooter("1"),
		deviceHeader("2"),
		"Resource cost: 25",
		deviceFooter("2"),
	)

	res := New().ParseLines(lines)
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Complete)
	assert.Equal(t, StateTerminated, res.State)
	assert.Equal(t, 7, res.LinesRead)
	assert.Equal(t, []string{"0", "1"}, res.Report.DeviceIDs())
	assert.Nil(t, res.Report.Device("2"))
	assert.NoError(t, res.Err())
}

func TestZeroDevicesTerminatesImmediately(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("0"),
		deviceHeader("0"),
		"Resource cost: 100",
	))
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Complete)
	assert.Empty(t, res.Report.Devices)
	assert.Equal(t, 1, res.LinesRead)
}

func TestLogicalCameraDetection(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("4"),
		"Resource cost: 100",
		"API2 camera characteristics:",
		"android.lens.facing (50005): byte[1]",
		"[0 ]",
		"Physical camera 5 characteristics:",
		"android.lens.facing (50005): byte[1]",
		"[1 ]",
		"Physical camera 6 characteristics:",
		"Width: 640, Height: 480",
		deviceFooter("4"),
	))
	require.NoError(t, res.Err())

	d := res.Report.Device("4")
	require.NotNil(t, d)
	assert.True(t, d.IsLogicalCamera)
	assert.Nil(t, d.Characteristics)
	assert.Equal(t, 2, d.PhysicalCameraCount)
	require.Len(t, d.PhysicalCameras, 2)

	assert.Equal(t, "5", d.PhysicalCameras[0].PhysicalCameraID)
	facing, ok := d.PhysicalCameras[0].Characteristics.TypedArray("android.lens.facing")
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, facing.Values)

	assert.Equal(t, "6", d.PhysicalCameras[1].PhysicalCameraID)
	w, _ := d.PhysicalCameras[1].Characteristics.Scalar("Width")
	assert.Equal(t, "640", w)

	assert.Equal(t, 1, res.DiagnosticCount(DiagDiscardedFields))
	assert.NotContains(t, encode(t, res.Report), `"Resource cost"`)
}

func TestTypedArrayAccumulation(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"FocalLength: float[2]",
		"[1.0 2.0]",
		"[3.0 4.0]",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	field, ok := res.Report.Device("0").Characteristics.TypedArray("FocalLength")
	require.True(t, ok)
	assert.Equal(t, "float", field.Datatype)
	assert.Equal(t, 2, field.Count)
	assert.Equal(t, []string{"1.0", "2.0", "3.0", "4.0"}, field.Values)
}

func TestInlineMultiPair(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"Width: 1920, Height: 1080",
		"Conflicting devices: 1, 2",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	block := res.Report.Device("0").Characteristics
	w, _ := block.Scalar("Width")
	h, _ := block.Scalar("Height")
	c, _ := block.Scalar("Conflicting devices")
	assert.Equal(t, "1920", w)
	assert.Equal(t, "1080", h)
	assert.Equal(t, "1, 2", c)
	assert.Equal(t, []string{"Width", "Height", "Conflicting devices"}, block.Keys())
}

func TestUnmatchedLineTolerance(t *testing.T) {
	clean := dumpLines(
		provider("2"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"Width: 1920, Height: 1080",
		"android.lens.facing (50005): byte[1]",
		"[1 ]",
		deviceFooter("0"),
		deviceHeader("1"),
		"API2 camera characteristics:",
		"android.sensor.orientation (e000e): int32[1]",
		"[90 ]",
		deviceFooter("1"),
	)
	noisy := dumpLines(
		"",
		"== Camera service dump ==",
		"-----------------------------------",
		provider("2"),
		"",
		"   ",
		deviceHeader("0"),
		"=========",
		"API2 camera characteristics:",
		"Vendor tags follow",
		"Width: 1920, Height: 1080",
		"",
		"android.lens.facing (50005): byte[1]",
		"[1 ]",
		"*** end of block ***",
		deviceFooter("0"),
		"random free text without structure",
		deviceHeader("1"),
		"API2 camera characteristics:",
		"\t",
		"android.sensor.orientation (e000e): int32[1]",
		"[90 ]",
		"~~~~~~",
		deviceFooter("1"),
		"trailing noise",
	)

	p := New()
	want := encode(t, p.ParseLines(clean).Report)
	assert.Equal(t, want, encode(t, p.ParseLines(noisy).Report))
}

func TestNoProvider(t *testing.T) {
	res := New().ParseLines(dumpLines(
		deviceHeader("0"),
		"Resource cost: 100",
		deviceFooter("0"),
	))
	assert.Nil(t, res.Report)
	assert.Equal(t, StateAwaitingProvider, res.State)
	assert.ErrorIs(t, res.Err(), ErrNoProvider)
}

func TestTruncatedInput(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("3"),
		deviceHeader("0"),
		"Resource cost: 100",
		deviceFooter("0"),
		deviceHeader("1"),
		"Resource cost: 50",
	))
	require.NotNil(t, res.Report)
	assert.False(t, res.Report.Complete)
	assert.Equal(t, StateInProvider, res.State)
	assert.Equal(t, []string{"0", "1"}, res.Report.DeviceIDs())

	err := res.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncomplete))
	var inc *IncompleteError
	require.True(t, errors.As(err, &inc))
	assert.Equal(t, 3, inc.Declared)
	assert.Equal(t, 1, inc.Processed)
	assert.Equal(t, 1, res.DiagnosticCount(DiagTruncated))
}

func TestOrphanValueLine(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"[1 2 3]",
		"Width: 10",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())
	assert.Equal(t, 1, res.DiagnosticCount(DiagOrphanValues))
	assert.Equal(t, []string{"Width"}, res.Report.Device("0").Characteristics.Keys())
}

func TestMalformedDeclarations(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"vendor.tag (80000000): uint16[2]",
		"[7 8]",
		"vendor.other: byte[n]",
		"[9]",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	block := res.Report.Device("0").Characteristics
	tag, ok := block.TypedArray("vendor.tag")
	require.True(t, ok)
	assert.Equal(t, []string{"7", "8"}, tag.Values)

	other, ok := block.TypedArray("vendor.other")
	require.True(t, ok)
	assert.Equal(t, "n", other.CountText)
	assert.Equal(t, 0, other.Count)
	assert.Equal(t, []string{"9"}, other.Values)

	assert.Equal(t, 1, res.DiagnosticCount(DiagUnknownDatatype))
	assert.Equal(t, 1, res.DiagnosticCount(DiagInvalidCount))

	// a device count too large for an int reads devices until input ends
	res = New().ParseLines(dumpLines(
		provider("99999999999999999999"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"android.lens.facing (50005): byte[1]",
		"[1 ]",
		deviceFooter("0"),
	))
	require.NotNil(t, res.Report)
	assert.False(t, res.Report.Complete)
	assert.Equal(t, StateInProvider, res.State)
	assert.Equal(t, []string{"0"}, res.Report.DeviceIDs())
	assert.Equal(t, 1, res.DiagnosticCount(DiagInvalidCount))
	assert.Equal(t, 1, res.DiagnosticCount(DiagTruncated))
	assert.ErrorIs(t, res.Err(), ErrIncomplete)
}

func TestBracketedInlineValue(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"Conflicting devices: [1, 2]",
		"API2 camera characteristics:",
		"FocalLength: float[1]",
		"[4.5 ]",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	d := res.Report.Device("0")
	v, ok := d.Characteristics.Scalar("Conflicting devices")
	require.True(t, ok)
	assert.Equal(t, "[1, 2]", v)

	fl, ok := d.Characteristics.TypedArray("FocalLength")
	require.True(t, ok)
	assert.Equal(t, []string{"4.5"}, fl.Values)
}

func TestUnnumberedDeviceSkipped(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("2"),
		deviceHeader("0"),
		"Resource cost: 100",
		deviceFooter("0"),
		"  == Camera HAL device device@3.5/external/usb-1 (v3.5) static information: ==",
		"Resource cost: 50",
		"API2 camera characteristics:",
		"android.lens.facing (50005): byte[1]",
		"[2 ]",
		"  == Camera HAL device device@3.5/external/usb-1 (v3.5) dumpState: ==",
	))

	require.NotNil(t, res.Report)
	assert.Equal(t, []string{"0"}, res.Report.DeviceIDs())
	assert.Nil(t, res.Report.Metadata)
	assert.Equal(t, 1, res.DiagnosticCount(DiagUnnumberedDevice))
	assert.False(t, res.Report.Complete)
}

func TestCharacteristicsRemainderPass(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"API2 camera characteristics: size: 100, data count: 3, entry count: 0",
		"Physical camera 1 characteristics: Width: 640",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	d := res.Report.Device("0")
	require.True(t, d.IsLogicalCamera)
	w, ok := d.PhysicalCameras[0].Characteristics.Scalar("Width")
	assert.True(t, ok)
	assert.Equal(t, "640", w)
	assert.Equal(t, 1, res.DiagnosticCount(DiagDiscardedFields))
}

func TestNestedCharacteristicsOnRepeatHeader(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"Resource cost: 100",
		"API2 camera characteristics:",
		"a: byte[1]",
		"[1]",
		"API2 camera characteristics:",
		"b: byte[1]",
		"[2]",
		"API2 camera characteristics:",
		"c: byte[1]",
		"[3]",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	block := res.Report.Device("0").Characteristics
	assert.Equal(t, []string{"Resource cost", "a", "characteristics"}, block.Keys())
	nested := block.Nested()
	require.NotNil(t, nested)
	assert.Equal(t, []string{"b", "c"}, nested.Keys())
	assert.Nil(t, nested.Nested())
}

func TestBlockSizeKeepsTypedPointer(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		deviceHeader("0"),
		"API2 camera characteristics:",
		"a: int32[4]",
		"[1 2]",
		"size: 10, data count: 1, entry count: 1",
		"[3 4]",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())

	block := res.Report.Device("0").Characteristics
	a, _ := block.TypedArray("a")
	assert.Equal(t, []string{"1", "2", "3", "4"}, a.Values)
	size, ok := block.Size()
	require.True(t, ok)
	assert.Equal(t, models.BlockSize{Size: 10, DataCount: 1, EntryCount: 1}, size)
	assert.Zero(t, res.DiagnosticCount(DiagSizeMismatch))
}

func TestDuplicateDeviceReplaced(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("2"),
		deviceHeader("0"),
		"Resource cost: 100",
		deviceFooter("0"),
		deviceHeader("0"),
		"Resource cost: 50",
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())
	assert.Equal(t, []string{"0"}, res.Report.DeviceIDs())
	cost, _ := res.Report.Device("0").Characteristics.Scalar("Resource cost")
	assert.Equal(t, "50", cost)
	assert.Equal(t, 1, res.DiagnosticCount(DiagDuplicateDevice))
}

func TestProviderMetadataFallback(t *testing.T) {
	res := New().ParseLines(dumpLines(
		provider("1"),
		"Number of devices: 1",
		deviceHeader("0"),
		deviceFooter("0"),
	))
	require.NoError(t, res.Err())
	v, ok := res.Report.Metadata.Scalar("Number of devices")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestParseUTF16Reader(t *testing.T) {
	data := readFixture(t, "camera_dump.txt")
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(data)
	require.NoError(t, err)

	res, err := New().Parse(bytes.NewReader(utf16))
	require.NoError(t, err)
	assert.Equal(t, textenc.UTF16LE, res.Encoding)
	assert.Equal(t, string(readFixture(t, "camera_dump.golden.json")), encode(t, res.Report))
}

func TestParseCRLF(t *testing.T) {
	data := strings.ReplaceAll(string(readFixture(t, "camera_dump.txt")), "\n", "\r\n")
	res, err := New().Parse(strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, string(readFixture(t, "camera_dump.golden.json")), encode(t, res.Report))
}

func TestParseFileUTF16(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes(readFixture(t, "camera_dump.txt"))
	require.NoError(t, err)
	path := testutil.TempFile(t, t.TempDir(), "dump-*.txt", string(utf16))

	res, err := New().ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, textenc.UTF16LE, res.Encoding)
	assert.Equal(t, 3, res.ProcessedDevices)
}

func TestParseFileMissing(t *testing.T) {
	_, err := New().ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	var fe *FileError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "open", fe.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParallelParsers(t *testing.T) {
	data := string(readFixture(t, "camera_dump.txt"))
	want := string(readFixture(t, "camera_dump.golden.json"))

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			if err := models.EncodeJSON(&buf, New().ParseString(data).Report, 2); err == nil {
				results[i] = buf.String()
			}
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}
