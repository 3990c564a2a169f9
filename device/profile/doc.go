// Package profile loads YAML device profiles and builds the descriptor
// tables and class layer a control pipe serves.
//
// A profile names the device descriptor fields, the manufacturer, product
// and serial strings, and each configuration with its interfaces and
// endpoints:
//
//	name: keyboard
//	device:
//	  vendor: 0xCAFE
//	  product: 0x4B42
//	  max_packet_size0: 8
//	configurations:
//	  - value: 1
//	    interfaces:
//	      - class: hid
//	        hid:
//	          report: keyboard
//	        endpoints:
//	          - address: 0x81
//	            type: interrupt
//
// Omitted fields take defaults: USB 2.0, a 64-byte endpoint-0 packet size,
// 100mA per configuration, and 8-byte interrupt endpoints. Bundled profiles
// are available through [Builtin].
package profile
