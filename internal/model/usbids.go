package model

// Small built-in excerpt of the usb.ids vendor list. Enough to put a name
// on the hardware commonly seen on lab and office hosts; unknown vendors
// resolve to the empty string.
var usbVendors = map[int]string{
	0x03EB: "Atmel Corp.",
	0x0403: "Future Technology Devices International, Ltd",
	0x0408: "Quanta Computer, Inc.",
	0x045E: "Microsoft Corp.",
	0x046D: "Logitech, Inc.",
	0x04B4: "Cypress Semiconductor Corp.",
	0x04D8: "Microchip Technology, Inc.",
	0x04E8: "Samsung Electronics Co., Ltd",
	0x04F2: "Chicony Electronics Co., Ltd",
	0x0557: "ATEN International Co., Ltd",
	0x05AC: "Apple, Inc.",
	0x067B: "Prolific Technology, Inc.",
	0x0781: "SanDisk Corp.",
	0x0835: "Action Star Enterprise Co., Ltd",
	0x0951: "Kingston Technology",
	0x0957: "Agilent Technologies, Inc.",
	0x0D28: "NXP ARM mbed",
	0x1050: "Yubico.com",
	0x10C4: "Silicon Labs",
	0x1366: "SEGGER",
	0x13D3: "IMC Networks",
	0x148F: "Ralink Technology, Corp.",
	0x152D: "JMicron Technology Corp.",
	0x174C: "ASMedia Technology Inc.",
	0x1A86: "QinHeng Electronics",
	0x2341: "Arduino SA",
	0x2B3E: "NuTrend Technology, Inc.",
	0x413C: "Dell Computer Corp.",
	0x8087: "Intel Corp.",
}

func usbVendorName(vendorID int) string {
	return usbVendors[vendorID]
}
