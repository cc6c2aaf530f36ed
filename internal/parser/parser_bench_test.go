package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createLargeDump builds a provider section with deviceCount devices, each
// carrying fieldCount typed characteristics.
func createLargeDump(deviceCount, fieldCount int) string {
	var sb strings.Builder
	sb.WriteString("Camera module HAL API version: 0x2\n")
	fmt.Fprintf(&sb, "Number of camera devices: %d\n\n", deviceCount)
	fmt.Fprintf(&sb, "== Camera Provider HAL legacy/0 (v2.5, remote) static info: %d devices: ==\n", deviceCount)

	for d := 0; d < deviceCount; d++ {
		fmt.Fprintf(&sb, "  == Camera HAL device device@3.5/legacy/%d (v3.5) static information: ==\n", d)
		sb.WriteString("    Resource cost: 100\n")
		sb.WriteString("    API2 camera characteristics:\n")
		fmt.Fprintf(&sb, "      size: 4096, data count: %d, entry count: %d\n", fieldCount*4, fieldCount)
		for f := 0; f < fieldCount; f++ {
			fmt.Fprintf(&sb, "      android.vendor.field%d (%x): int32[4]\n", f, 0x10000+f)
			sb.WriteString("        [0 0 4000 3000 ]\n")
		}
		fmt.Fprintf(&sb, "  == Camera HAL device device@3.5/legacy/%d (v3.5) dumpState: ==\n", d)
		sb.WriteString("    Device status: CLOSED\n")
	}
	return sb.String()
}

func BenchmarkParseFixture(b *testing.B) {
	data, err := os.ReadFile(filepath.Join("testdata", "camera_dump.txt"))
	if err != nil {
		b.Fatal(err)
	}
	content := string(data)
	parser := New()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(content)))

	for i := 0; i < b.N; i++ {
		res := parser.ParseString(content)
		if res.Report == nil {
			b.Fatal("expected a report")
		}
	}
}

func BenchmarkParseLarge(b *testing.B) {
	for _, devices := range []int{8, 64} {
		b.Run(fmt.Sprintf("Devices_%d", devices), func(b *testing.B) {
			content := createLargeDump(devices, 200)
			parser := New()

			b.ResetTimer()
			b.ReportAllocs()
			b.SetBytes(int64(len(content)))

			for i := 0; i < b.N; i++ {
				res := parser.ParseString(content)
				if res.Report == nil || len(res.Report.Devices) != devices {
					b.Fatal("expected every device to be parsed")
				}
			}
		})
	}
}

func BenchmarkClassify(b *testing.B) {
	lines := []string{
		"android.control.aeAvailableTargetFpsRanges (10014): int32[4]",
		"[(15, 30) (30, 30) ]",
		"size: 4096, data count: 120, entry count: 4",
		"Has a flash unit: true",
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		for _, line := range lines {
			classify(sectionRules, line)
		}
	}
}
