// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rpc implements the client side of Neovim's msgpack-rpc protocol.
//
// The package frames messages on a byte stream, correlates requests with
// their responses under concurrent callers, and hands every other inbound
// frame to a Handler.
//
// # Components
//
//   - Value: dynamically tagged msgpack value used for every payload
//   - Reader/Writer: frame codec for [0,id,method,params], [1,id,error,result]
//     and [2,method,params]
//   - Client: id allocation, pending call table and the read loop (Serve)
//   - CallResponse: two-stage handle, dispatched then answered
//
// # Thread Safety
//
// Client and CallResponse are safe for concurrent use. Reader and Writer
// are not; Client owns its Writer and Serve owns its Reader.
//
// # Example
//
//	client := rpc.NewClient(proc.Stdin())
//	go client.Serve(ctx, rpc.NewReader(proc.Stdout()), handler)
//
//	cr, err := client.Call(ctx, "nvim_eval", rpc.String("1 + 1"))
//	if err != nil {
//		return err
//	}
//	v, err := cr.Wait(ctx)
package rpc
