// Copyright (c) 2024 The Signum Network developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package shabal

// Initial state words for the 256-bit variant, transcribed from
// sphlib's A_init_256/B_init_256/C_init_256 tables (sph_shabal.c).
var (
	ivA = [12]uint32{
		0x52F84552, 0xE54B7999, 0x2D8EE3EC, 0xB9645191,
		0xE0078B86, 0xBB7C44C9, 0xD2B5C1CA, 0xB0D2EB8C,
		0x14CE5A45, 0x22AF50DC, 0xEFFDBC6B, 0xEB21B74A,
	}
	ivB = [16]uint32{
		0xB555C6EE, 0x3E710596, 0xA72A652F, 0x9301515F,
		0xDA28C1FA, 0x696FD868, 0x9CB6BF72, 0x0AFE4002,
		0xA6E03615, 0x5138C1D4, 0xBE216306, 0xB38B8890,
		0x3EA8B96B, 0x3299ACE4, 0x30924DD4, 0x55CB34A5,
	}
	ivC = [16]uint32{
		0xB405F031, 0xC4233EBA, 0xB3733979, 0xC0DD9D55,
		0xC51C28AE, 0xA327B8E1, 0x56C56167, 0xED614433,
		0x88B59D60, 0x60E2CEBA, 0x758B4B8B, 0x83E82A7F,
		0xBC968828, 0xE6E00BF7, 0xBA839E55, 0x9B491C60,
	}
)
