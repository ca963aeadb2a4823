package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"optionguard/internal/models"
)

func newTestOutput(colorEnabled bool) (*Output, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Output{writer: buf, colorEnabled: colorEnabled}, buf
}

func TestOutputJSONMode(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{writer: buf, jsonMode: true}

	require.True(t, out.IsJSON())
	require.NoError(t, out.JSON(map[string]string{"status": "HOLDING_GOOD"}))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "HOLDING_GOOD", decoded["status"])
	// Indented output, not a single line
	assert.Contains(t, buf.String(), "\n  ")
}

func TestColoredStringRespectsToggle(t *testing.T) {
	out, _ := newTestOutput(true)
	assert.Equal(t, ColorGreen+"up"+ColorReset, out.Green("up"))
	assert.Equal(t, ColorRed+"down"+ColorReset, out.Red("down"))

	plain, _ := newTestOutput(false)
	assert.Equal(t, "up", plain.Green("up"))
	assert.Equal(t, "down", plain.Red("down"))
}

func TestFormatPnLColorsBySign(t *testing.T) {
	out, _ := newTestOutput(true)
	assert.Equal(t, ColorGreen+"+$400.00"+ColorReset, out.FormatPnL(400))
	assert.Equal(t, ColorRed+"-$120.50"+ColorReset, out.FormatPnL(-120.50))
	assert.Equal(t, ColorWhite+"$0.00"+ColorReset, out.FormatPnL(0))
}

func TestStatusTextColorsByUrgency(t *testing.T) {
	out, _ := newTestOutput(true)

	assert.Equal(t, ColorRed+"EXIT_STOP"+ColorReset, out.StatusText(models.StatusExitStop))
	assert.Equal(t, ColorYellow+"WARNING_GAMMA"+ColorReset, out.StatusText(models.StatusWarningGamma))
	assert.Equal(t, ColorGreen+"HOLDING_STRONG"+ColorReset, out.StatusText(models.StatusHoldingStrong))
	assert.Equal(t, "HOLDING_NEUTRAL", out.StatusText(models.StatusHoldingNeutral))
	assert.Equal(t, "NEW", out.StatusText(models.StatusNew))
}

func TestGradeText(t *testing.T) {
	out, _ := newTestOutput(true)
	assert.Equal(t, ColorGreen+"A"+ColorReset, out.GradeText("A"))
	assert.Equal(t, ColorYellow+"C"+ColorReset, out.GradeText("C"))
	assert.Equal(t, ColorRed+"F"+ColorReset, out.GradeText("F"))
}

func TestStripANSI(t *testing.T) {
	colored := ColorBold + ColorGreen + "AAPL" + ColorReset
	assert.Equal(t, "AAPL", stripANSI(colored))
	assert.Equal(t, "plain", stripANSI("plain"))
}

func TestTableRenderPlain(t *testing.T) {
	out, buf := newTestOutput(false)
	table := NewTable(out, "ID", "STATUS")
	table.AddRow("AAPL_190_a1b2c3", "HOLDING_GOOD")
	table.AddRow("SPY_540_d4e5f6", "EXIT_STOP")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID               STATUS      ", lines[0])
	assert.Equal(t, "-----------------------------", lines[1])
	assert.Equal(t, "AAPL_190_a1b2c3  HOLDING_GOOD", lines[2])
	assert.Equal(t, "SPY_540_d4e5f6   EXIT_STOP   ", lines[3])
}

func TestTableRenderPadsByVisibleWidth(t *testing.T) {
	out, buf := newTestOutput(true)
	table := NewTable(out, "SYMBOL", "P&L")
	table.AddRow("AAPL", out.Green("+40.0%"))
	table.AddRow("LONGSYMBOL", out.Red("-3.5%"))
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	// Visible widths must match even though one cell carries escape codes.
	want := len(stripANSI(lines[2]))
	for _, line := range lines[2:] {
		assert.Equal(t, want, len(stripANSI(line)))
	}
}
