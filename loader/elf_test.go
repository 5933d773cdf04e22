package loader_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrace/loader"
	"github.com/sarchlab/rvtrace/loader/elftest"
)

var _ = Describe("ELF Loader", func() {
	var tempDir string

	write := func(name string, data []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())
		return path
	}

	// addi x1, x0, 5; ecall
	code := []byte{0x93, 0x00, 0x50, 0x00, 0x73, 0x00, 0x00, 0x00}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid RV32 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = write("test.elf", elftest.Build32(elftest.MachineRISCV, 0x80000000, []elftest.Segment{
					{Addr: 0x80000000, Data: code, MemSize: uint32(len(code)), Flags: 0x5},
				}, nil))
			})

			It("should extract the entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x80000000)))
			})

			It("should load the code segment", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))

				seg := prog.Segments[0]
				Expect(seg.VirtAddr).To(Equal(uint32(0x80000000)))
				Expect(seg.Data).To(Equal(code))
				Expect(seg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagRead).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagWrite).To(BeZero())
			})

			It("should read instruction words", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				word, ok := prog.ReadWord(0x80000000)
				Expect(ok).To(BeTrue())
				Expect(word).To(Equal(uint32(0x00500093)))

				word, ok = prog.ReadWord(0x80000004)
				Expect(ok).To(BeTrue())
				Expect(word).To(Equal(uint32(0x00000073)))

				_, ok = prog.ReadWord(0x80000008)
				Expect(ok).To(BeFalse())
			})
		})

		Context("with code and data segments", func() {
			It("should load both and zero-fill BSS", func() {
				data := []byte{0x01, 0x02, 0x03, 0x04}
				elfPath := write("multi.elf", elftest.Build32(elftest.MachineRISCV, 0x80000000, []elftest.Segment{
					{Addr: 0x80000000, Data: code, MemSize: uint32(len(code)), Flags: 0x5},
					{Addr: 0x80002000, Data: data, MemSize: 1024, Flags: 0x6},
				}, nil))

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(2))

				dataSeg := prog.Segments[1]
				Expect(dataSeg.Data).To(Equal(data))
				Expect(dataSeg.MemSize).To(Equal(uint32(1024)))
				Expect(dataSeg.Flags & loader.SegmentFlagWrite).NotTo(BeZero())

				word, ok := prog.ReadWord(0x80002000)
				Expect(ok).To(BeTrue())
				Expect(word).To(Equal(uint32(0x04030201)))

				word, ok = prog.ReadWord(0x80002100)
				Expect(ok).To(BeTrue())
				Expect(word).To(BeZero())
			})
		})

		Context("with no loadable segments", func() {
			It("should return an empty segment list", func() {
				elfPath := write("no-load.elf", elftest.Build32(elftest.MachineRISCV, 0x80000000, nil, nil))

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(BeEmpty())
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(MatchError(ContainSubstring("failed to open")))
			})

			It("should return error for non-ELF file", func() {
				_, err := loader.Load(write("not-elf.bin", []byte("not an elf file")))
				Expect(err).To(MatchError(ContainSubstring("ELF")))
			})

			It("should return error for empty file", func() {
				_, err := loader.Load(write("empty.elf", []byte{}))
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with a foreign ELF", func() {
			It("should reject another machine", func() {
				_, err := loader.Load(write("x86.elf", elftest.Build32(elftest.Machine386, 0, nil, nil)))
				Expect(err).To(MatchError(ContainSubstring("not a RISC-V")))
			})

			It("should reject a 64-bit ELF", func() {
				_, err := loader.Load(write("rv64.elf", elftest.Build64()))
				Expect(err).To(MatchError(ContainSubstring("not a 32-bit")))
			})
		})
	})

	Describe("Read", func() {
		It("should parse an image held in memory", func() {
			image := elftest.Build32(elftest.MachineRISCV, 0x80000000, []elftest.Segment{
				{Addr: 0x80000000, Data: code, MemSize: uint32(len(code)), Flags: elftest.FlagR | elftest.FlagX},
			}, nil)

			prog, err := loader.Read(bytes.NewReader(image))
			Expect(err).NotTo(HaveOccurred())

			word, ok := prog.ReadWord(0x80000004)
			Expect(ok).To(BeTrue())
			Expect(word).To(Equal(uint32(0x00000073)))
		})

		It("should find the signature in an image held in memory", func() {
			image := elftest.Build32(elftest.MachineRISCV, 0x80000000, nil, []elftest.Symbol{
				{Name: "begin_signature", Value: 0x80003000},
				{Name: "end_signature", Value: 0x80003010},
			})

			w, err := loader.SignatureFromReader(bytes.NewReader(image))
			Expect(err).NotTo(HaveOccurred())
			Expect(w.End - w.Begin).To(Equal(uint32(0x10)))
		})

		It("should reject garbage", func() {
			_, err := loader.Read(bytes.NewReader([]byte("garbage")))
			Expect(err).To(MatchError(ContainSubstring("failed to parse ELF file")))
		})
	})

	Describe("SignatureFromELF", func() {
		It("should find the signature symbols", func() {
			elfPath := write("sig.elf", elftest.Build32(elftest.MachineRISCV, 0x80000000, []elftest.Segment{
				{Addr: 0x80000000, Data: code, MemSize: uint32(len(code)), Flags: 0x5},
			}, []elftest.Symbol{
				{Name: "_start", Value: 0x80000000},
				{Name: "begin_signature", Value: 0x80002000},
				{Name: "end_signature", Value: 0x80002040},
			}))

			w, err := loader.SignatureFromELF(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(w).To(Equal(loader.SignatureWindow{Begin: 0x80002000, End: 0x80002040}))
		})

		It("should report a missing symbol", func() {
			elfPath := write("half.elf", elftest.Build32(elftest.MachineRISCV, 0x80000000, nil, []elftest.Symbol{
				{Name: "begin_signature", Value: 0x80002000},
			}))

			_, err := loader.SignatureFromELF(elfPath)
			Expect(err).To(MatchError(loader.ErrSymbolNotFound))
			Expect(err).To(MatchError(ContainSubstring("end_signature")))
		})

		It("should report an ELF without a symbol table", func() {
			elfPath := write("nosyms.elf", elftest.Build32(elftest.MachineRISCV, 0x80000000, nil, nil))

			_, err := loader.SignatureFromELF(elfPath)
			Expect(err).To(MatchError(loader.ErrSymbolNotFound))
		})
	})
})
