// {{{ Copyright (c) Paul R. Tagliamonte <paultag@gmail.com> 2020-2021
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

package ipmpsc

import "go.uber.org/zap"

// receiverOptions and senderOptions are plain option structs in the
// teacher's Options-struct idiom (paultag-go-diskring's Options), rather
// than modeled as config to be loaded from a file: this is a library, and
// the only "configuration" a caller has is these constructor knobs.
type receiverOptions struct {
	codec  Codec
	logger *zap.Logger
}

type senderOptions struct {
	codec  Codec
	logger *zap.Logger
}

func defaultReceiverOptions() receiverOptions {
	return receiverOptions{codec: DefaultCodec, logger: zap.NewNop()}
}

func defaultSenderOptions() senderOptions {
	return senderOptions{codec: DefaultCodec, logger: zap.NewNop()}
}

// ReceiverOption configures a Receiver constructor.
type ReceiverOption func(*receiverOptions)

// SenderOption configures a Sender constructor.
type SenderOption func(*senderOptions)

// WithCodec overrides the codec used to marshal/unmarshal message
// payloads. The default is DefaultCodec.
func WithCodec(c Codec) ReceiverOption {
	return func(o *receiverOptions) { o.codec = c }
}

// WithSenderCodec is WithCodec's Sender-side counterpart; both ends of a
// channel must agree on a codec.
func WithSenderCodec(c Codec) SenderOption {
	return func(o *senderOptions) { o.codec = c }
}

// WithLogger attaches a zap.Logger for diagnostic logging of receive
// stalls, wrap-sentinel crossings, and corruption detection. The default
// is a no-op logger.
func WithLogger(l *zap.Logger) ReceiverOption {
	return func(o *receiverOptions) { o.logger = l }
}

// WithSenderLogger is WithLogger's Sender-side counterpart.
func WithSenderLogger(l *zap.Logger) SenderOption {
	return func(o *senderOptions) { o.logger = l }
}
