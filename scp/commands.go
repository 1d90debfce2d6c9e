// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package scp

// The higher-level SCP command vocabulary is out of scope for this engine
// (see the package doc). CmdRead and CmdWrite are the two command codes the
// fragmenter itself must place on the wire to drive a bulk transfer; no
// other command is known to, or exposed by, this package. SendSingle's
// caller supplies its own command code for everything else.
const (
	CmdRead  uint16 = 2
	CmdWrite uint16 = 3
)

// StatusOK is the only return code the dispatcher treats as success for a
// bulk fragment; anything else fails the transfer with a CodeBadReturnCode
// *Error carrying that status in its RC field.
const StatusOK uint16 = 0
