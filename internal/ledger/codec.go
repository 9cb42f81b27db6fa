package ledger

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Payloads (prompts and diffs) are often large and highly repetitive;
// they are zstd-compressed at append time and never rewritten.

var (
	payloadEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	payloadDecoder, _ = zstd.NewReader(nil)
)

func compressPayload(text string) []byte {
	if text == "" {
		return nil
	}
	return payloadEncoder.EncodeAll([]byte(text), nil)
}

func decompressPayload(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	out, err := payloadDecoder.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("decompress ledger payload: %w", err)
	}
	return string(out), nil
}
