/*
Copyright 2023 The Nuclio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package compression

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/nuclio/errors"
	"github.com/pierrec/lz4/v4"
)

const (
	lz4MaxExpansion           = 255
	zstdMaxPreallocationRatio = 64
)

var lz4Levels = []lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1,
	lz4.Level2,
	lz4.Level3,
	lz4.Level4,
	lz4.Level5,
	lz4.Level6,
	lz4.Level7,
	lz4.Level8,
	lz4.Level9,
}

// zstd encoders and the decoder are safe for concurrent EncodeAll / DecodeAll
// calls, so a single instance per level is shared by the whole process
var (
	zstdEncoders     sync.Map
	zstdDecoder      *zstd.Decoder
	zstdDecoderErr   error
	zstdDecoderOnce  sync.Once
	zstdEncoderMutex sync.Mutex
)

// Compress encodes input according to config. The returned type is the codec that was
// actually applied, which falls back to TypeNone when the input is at or below the threshold,
// when the codec fails, or when the output does not shrink below the minimum gain
func Compress(config Config, input []byte) (Type, []byte) {
	if !config.ShouldCompress(len(input)) {
		return TypeNone, input
	}

	var compressed []byte
	var err error

	switch config.Type {
	case TypeLZ4:
		compressed, err = compressLZ4(config.Level, input)
	case TypeZSTD:
		compressed, err = compressZSTD(config.Level, input)
	default:
		return TypeNone, input
	}

	if err != nil || len(compressed) == 0 {
		return TypeNone, input
	}

	// compressed output must be at most minGain percent of the input
	if len(compressed)*100 > len(input)*config.minGainPercent() {
		return TypeNone, input
	}

	return config.Type, compressed
}

// Decompress restores a payload of the given codec. The result must be exactly
// uncompressedSize bytes long
func Decompress(compressionType Type, uncompressedSize uint32, input []byte) ([]byte, error) {
	if !compressionType.IsKnown() {
		return nil, errors.Wrapf(ErrUnsupportedCodec, "Compression type %d", compressionType)
	}

	if uncompressedSize > MaxUncompressedSize {
		return nil, errors.Wrapf(ErrSizeMismatch,
			"Announced size %d exceeds limit of %d",
			uncompressedSize,
			MaxUncompressedSize)
	}

	switch compressionType {
	case TypeLZ4:
		return decompressLZ4(int(uncompressedSize), input)
	case TypeZSTD:
		return decompressZSTD(int(uncompressedSize), input)
	default:
		if len(input) != int(uncompressedSize) {
			return nil, errors.Wrapf(ErrSizeMismatch,
				"Expected %d bytes, got %d",
				uncompressedSize,
				len(input))
		}

		return input, nil
	}
}

func compressLZ4(level int, input []byte) ([]byte, error) {
	output := make([]byte, lz4.CompressBlockBound(len(input)))

	var written int
	var err error

	if level <= 0 {
		written, err = lz4.CompressBlock(input, output, nil)
	} else {
		if level >= len(lz4Levels) {
			level = len(lz4Levels) - 1
		}

		written, err = lz4.CompressBlockHC(input, output, lz4Levels[level], nil, nil)
	}

	if err != nil {
		return nil, errors.Wrap(err, "Failed to compress block")
	}

	// zero means the block is incompressible
	return output[:written], nil
}

func decompressLZ4(expectedSize int, input []byte) ([]byte, error) {

	// a block cannot expand beyond this, reject larger announcements before allocating
	if expectedSize > len(input)*lz4MaxExpansion {
		return nil, errors.Wrapf(ErrSizeMismatch,
			"Announced size %d cannot come from a %d byte lz4 block",
			expectedSize,
			len(input))
	}

	// one spare byte lets an oversized announcement surface as a short read
	output := make([]byte, expectedSize+1)

	decoded, err := lz4.UncompressBlock(input, output)
	if err == nil {
		if decoded != expectedSize {
			return nil, errors.Wrapf(ErrSizeMismatch, "Expected %d bytes, got %d", expectedSize, decoded)
		}

		return output[:decoded], nil
	}

	// the destination may simply have been too small. decode again into the largest
	// buffer the block could need to tell a wrong size from a corrupt block
	boundSize := len(input) * lz4MaxExpansion
	if boundSize > MaxUncompressedSize {
		boundSize = MaxUncompressedSize
	}

	if boundSize > expectedSize {
		decoded, retryErr := lz4.UncompressBlock(input, make([]byte, boundSize))
		if retryErr == nil {
			return nil, errors.Wrapf(ErrSizeMismatch, "Expected %d bytes, got %d", expectedSize, decoded)
		}
	}

	return nil, errors.Wrapf(ErrCorruptPayload, "Failed to decode lz4 block: %s", err.Error())
}

func compressZSTD(level int, input []byte) ([]byte, error) {
	encoder, err := getZSTDEncoder(level)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get zstd encoder")
	}

	return encoder.EncodeAll(input, make([]byte, 0, len(input))), nil
}

func decompressZSTD(expectedSize int, input []byte) ([]byte, error) {
	decoder, err := getZSTDDecoder()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get zstd decoder")
	}

	outputCapacity := expectedSize

	frameHeader := zstd.Header{}
	if headerErr := frameHeader.Decode(input); headerErr == nil && frameHeader.HasFCS {
		if frameHeader.FrameContentSize != uint64(expectedSize) {
			return nil, errors.Wrapf(ErrSizeMismatch,
				"Expected %d bytes, frame holds %d",
				expectedSize,
				frameHeader.FrameContentSize)
		}
	} else if maxCapacity := len(input) * zstdMaxPreallocationRatio; outputCapacity > maxCapacity {

		// without a content size, let the output grow instead of trusting the announcement
		outputCapacity = maxCapacity
	}

	output, err := decoder.DecodeAll(input, make([]byte, 0, outputCapacity))
	if err != nil {
		return nil, errors.Wrapf(ErrCorruptPayload, "Failed to decode zstd frame: %s", err.Error())
	}

	if len(output) != expectedSize {
		return nil, errors.Wrapf(ErrSizeMismatch, "Expected %d bytes, got %d", expectedSize, len(output))
	}

	return output, nil
}

func getZSTDEncoder(level int) (*zstd.Encoder, error) {
	encoderLevel := zstd.SpeedDefault
	if level > 0 {
		encoderLevel = zstd.EncoderLevelFromZstd(level)
	}

	if encoder, found := zstdEncoders.Load(encoderLevel); found {
		return encoder.(*zstd.Encoder), nil
	}

	zstdEncoderMutex.Lock()
	defer zstdEncoderMutex.Unlock()

	// another goroutine may have won the race
	if encoder, found := zstdEncoders.Load(encoderLevel); found {
		return encoder.(*zstd.Encoder), nil
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create zstd encoder")
	}

	zstdEncoders.Store(encoderLevel, encoder)

	return encoder, nil
}

func getZSTDDecoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil,
			zstd.WithDecoderMaxMemory(MaxUncompressedSize))
	})

	return zstdDecoder, zstdDecoderErr
}
