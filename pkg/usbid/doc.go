// Package usbid looks up vendor and product names in the usb.ids database
// distributed with usbutils and hwdata.
//
//	db, err := usbid.Open()
//	if err != nil {
//	    // errors.Is(err, os.ErrNotExist) when no database is installed
//	}
//	vendor, product := db.Lookup(0x1d6b, 0x0002)
package usbid
