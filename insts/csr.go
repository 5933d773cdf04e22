package insts

import "fmt"

// Machine-mode trap CSR indices.
const (
	CSRMStatus  = 0x300
	CSRMISA     = 0x301
	CSRMIE      = 0x304
	CSRMTVec    = 0x305
	CSRMScratch = 0x340
	CSRMEPC     = 0x341
	CSRMCause   = 0x342
	CSRMTVal    = 0x343
	CSRMIP      = 0x344
)

// csrGroup names eight consecutive CSR indices starting at base.
type csrGroup struct {
	base  uint16
	names [8]string
}

var csrGroups = []csrGroup{
	{0x000, [8]string{"ustatus", "fflags", "frm", "fcsr", "uie", "utvec", "", ""}},
	{0x040, [8]string{"uscratch", "uepc", "ucause", "utval", "uip", "", "", ""}},
	{0x100, [8]string{"sstatus", "", "sedeleg", "sideleg", "sie", "stvec", "scounteren", ""}},
	{0x140, [8]string{"sscratch", "sepc", "scause", "stval", "sip", "", "", ""}},
	{0x180, [8]string{"satp", "", "", "", "", "", "", ""}},
	{0x300, [8]string{"mstatus", "misa", "medeleg", "mideleg", "mie", "mtvec", "mcounteren", ""}},
	{0x340, [8]string{"mscratch", "mepc", "mcause", "mtval", "mip", "", "", ""}},
	{0x3A0, [8]string{"pmpcfg0", "pmpcfg1", "pmpcfg2", "pmpcfg3", "", "", "", ""}},
	{0xF10, [8]string{"", "mvendorid", "marchid", "mimpid", "mhartid", "", "", ""}},
}

var csrNames = buildCSRNames()

func buildCSRNames() map[uint16]string {
	names := make(map[uint16]string)

	for _, g := range csrGroups {
		for i, n := range g.names {
			if n != "" {
				names[g.base+uint16(i)] = n
			}
		}
	}

	for i := uint16(0); i < 16; i++ {
		names[0x3B0+i] = fmt.Sprintf("pmpaddr%d", i)
	}

	// Counters: machine (0xB00), machine high (0xB80), user (0xC00),
	// user high (0xC80).
	counterBanks := []struct {
		base   uint16
		prefix string
		fixed  [3]string
		suffix string
	}{
		{0xB00, "mhpmcounter", [3]string{"mcycle", "", "minstret"}, ""},
		{0xB80, "mhpmcounter", [3]string{"mcycleh", "", "minstreth"}, "h"},
		{0xC00, "hpmcounter", [3]string{"cycle", "time", "instret"}, ""},
		{0xC80, "hpmcounter", [3]string{"cycleh", "timeh", "instreth"}, "h"},
	}
	for _, bank := range counterBanks {
		for i := uint16(0); i < 32; i++ {
			if i < 3 {
				if bank.fixed[i] != "" {
					names[bank.base+i] = bank.fixed[i]
				}
				continue
			}
			names[bank.base+i] = fmt.Sprintf("%s%d%s", bank.prefix, i, bank.suffix)
		}
	}

	return names
}

// CSRName returns the mnemonic of a CSR index, or csrXXX for an index
// without a standard name.
func CSRName(csr uint16) string {
	csr &= 0xFFF
	if n, ok := csrNames[csr]; ok {
		return n
	}
	return fmt.Sprintf("csr%03X", csr)
}
