package bot

import (
	"fmt"
	"strings"
	"time"

	"deadline-buddy/internal/model"
	"deadline-buddy/internal/service"
)

const replyDivider = "\n\n─────────────────────\n\n"

const replyApology = "❌ *Maaf, terjadi kesalahan saat memproses permintaan kamu.*\n\nSilakan coba lagi nanti."

func (p *Processor) startReply() string {
	return fmt.Sprintf("🤖 *%s*\n\n"+
		"Halo! Aku %s. Aku bantu kalian mencatat tugas dan tenggatnya, lalu mengingatkan sebelum waktunya habis.\n"+
		"Ketik `%scommands` untuk melihat semua perintah.",
		p.botName, p.botName, p.prefix)
}

func (p *Processor) commandsReply(tz model.Timezone) string {
	var b strings.Builder
	b.WriteString("📚 *Daftar Perintah*\n\n")
	for _, entry := range Catalog(p.prefix) {
		fmt.Fprintf(&b, "• `%s` — %s\n", entry.Usage, entry.Description)
	}
	fmt.Fprintf(&b, "\nFormat waktu: DD-MM-YYYY HH:mm (%s)\n", tz)
	fmt.Fprintf(&b, "Pengingat opsional: H-<jam>, default %s sebelum tenggat\n", service.FormatLead(service.DefaultLeadTime))
	fmt.Fprintf(&b, "Contoh: `%s%s PR Matematika, Bab 1, 25-11-2025 10:00, H-24`\n\n", p.prefix, KeywordTaskAdd)
	b.WriteString("Catatan: Bot bekerja per grup secara terpisah.")
	return b.String()
}

// CatalogEntry describes one chat command.
type CatalogEntry struct {
	Keyword     string `json:"keyword"`
	Usage       string `json:"usage"`
	Description string `json:"description"`
}

// Catalog lists the supported chat commands rendered with prefix.
func Catalog(prefix string) []CatalogEntry {
	return []CatalogEntry{
		{KeywordTaskAdd, prefix + KeywordTaskAdd + " [nama], [pelajaran], [waktu], [H-jam]", "Tambah tugas baru"},
		{KeywordTaskDelete, prefix + KeywordTaskDelete + " [nama]", "Hapus tugas berdasarkan nama"},
		{KeywordTaskList, prefix + KeywordTaskList, "Tampilkan semua tugas"},
		{KeywordTimezoneEdit, prefix + KeywordTimezoneEdit + " (WIB/WITA/WIT)", "Atur zona waktu grup"},
		{KeywordStart, prefix + KeywordStart, "Perkenalan bot"},
		{KeywordCommands, prefix + KeywordCommands, "Tampilkan pesan bantuan ini"},
	}
}

func (p *Processor) taskAddFormatReply() string {
	return fmt.Sprintf("❌ *Format Salah!*\n\n"+
		"Gunakan: `%s%s [nama], [pelajaran], [waktu], [H-jam]`\n\n"+
		"*Contoh:*\n`%s%s PR Matematika, Bab 1, 25-11-2025 10:00`\n\n"+
		"📝 *Catatan:*\n"+
		"• Gunakan koma untuk memisahkan\n"+
		"• Format waktu: DD-MM-YYYY HH:mm (24 jam)\n"+
		"• H-jam boleh dikosongkan",
		p.prefix, KeywordTaskAdd, p.prefix, KeywordTaskAdd)
}

func dateTimeFormatReply(input string) string {
	return fmt.Sprintf("❌ *Format Waktu Salah!*\n\n"+
		"Gunakan format: `DD-MM-YYYY HH:mm`\n"+
		"*Contoh:* `25-11-2025 10:00`\n\n"+
		"Input kamu: `%s`", input)
}

func reminderSpecReply(input string) string {
	return fmt.Sprintf("❌ *Format Pengingat Salah!*\n\n"+
		"Gunakan format: `H-<jam>` dengan jam minimal 1\n"+
		"*Contoh:* `H-24` untuk 24 jam sebelum tenggat\n\n"+
		"Input kamu: `%s`", input)
}

func pastDateTimeReply(input, now time.Time, tz model.Timezone) string {
	return fmt.Sprintf("❌ *Waktu harus di masa depan!*\n\n"+
		"Waktu input: %s\n"+
		"Waktu sekarang: %s",
		service.FormatLocal(input, tz), service.FormatLocal(now, tz))
}

func taskAddedReply(task *model.Task, reminder *model.Reminder, tz model.Timezone) string {
	lead := time.Duration(task.LeadMinutes) * time.Minute
	return fmt.Sprintf("✅ *Tugas Berhasil Ditambahkan!*\n\n"+
		"📚 *%s*\n"+
		"📖 Pelajaran: %s\n"+
		"📅 Deadline: %s\n\n"+
		"🔔 Pengingat akan dikirim %s sebelum deadline (%s).",
		task.Name, task.Subject, service.FormatLocal(task.DueAt, tz),
		service.FormatLead(lead), service.FormatLocal(reminder.FireAt, tz))
}

func (p *Processor) emptyListReply() string {
	return fmt.Sprintf("📅 *Tidak ada tugas saat ini*\n\n"+
		"Untuk menambah tugas baru, gunakan:\n`%s%s [nama], [pelajaran], [waktu]`",
		p.prefix, KeywordTaskAdd)
}

func (p *Processor) taskListReply(tasks []model.Task, tz model.Timezone) string {
	loc := tz.Location()

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Daftar Tugas (%s)*\n\n", tz)

	// Tasks arrive ordered by due instant, so local dates come in order too.
	var current string
	for _, task := range tasks {
		local := task.DueAt.In(loc)
		date := local.Format("02/01/2006")
		if date != current {
			if current != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "🗓️ *%s*\n", date)
			current = date
		}
		fmt.Fprintf(&b, "• [%s %s] %s (%s)", local.Format("15:04"), tz, task.Name, task.Subject)
		if task.Recurring {
			b.WriteString(" 🔁")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n💡 *Tips:*\n• Gunakan `%s%s [nama]` untuk menghapus tugas", p.prefix, KeywordTaskDelete)
	return b.String()
}

func (p *Processor) deleteUsageReply() string {
	return fmt.Sprintf("❌ *Nama tugas tidak boleh kosong!*\n\n"+
		"Gunakan: `%s%s [nama]`\n"+
		"*Contoh:* `%s%s PR Matematika`",
		p.prefix, KeywordTaskDelete, p.prefix, KeywordTaskDelete)
}

func (p *Processor) taskNotFoundReply(name string) string {
	return fmt.Sprintf("❌ *Tugas tidak ditemukan!*\n\n"+
		"Tidak ada tugas dengan nama: \"%s\"\n"+
		"Cek daftar tugas dengan `%s%s`",
		name, p.prefix, KeywordTaskList)
}

func taskDeletedReply(task *model.Task, tz model.Timezone) string {
	return fmt.Sprintf("✅ *Tugas berhasil dihapus!*\n\n"+
		"Tugas: *%s*\n"+
		"Deadline: %s",
		task.Name, service.FormatLocal(task.DueAt, tz))
}

func (p *Processor) timezoneUsageReply() string {
	return fmt.Sprintf("❌ Format salah\n\nGunakan: `%s%s (WIB/WITA/WIT)`", p.prefix, KeywordTimezoneEdit)
}

func timezoneSetReply(tz model.Timezone) string {
	return fmt.Sprintf("✅ Timezone grup disetel ke *%s*", tz)
}

func (p *Processor) unknownTaskCommandReply() string {
	return fmt.Sprintf("❓ *Perintah tidak dikenal*\n\n"+
		"Coba gunakan:\n"+
		"• `%s%s`\n"+
		"• `%s%s`\n"+
		"• `%s%s`",
		p.prefix, KeywordTaskAdd, p.prefix, KeywordTaskDelete, p.prefix, KeywordTaskList)
}

func (p *Processor) unknownTimezoneCommandReply() string {
	return fmt.Sprintf("❓ *Perintah tidak dikenal*\n\nGunakan: `%s%s (WIB/WITA/WIT)`", p.prefix, KeywordTimezoneEdit)
}

func lineFailureReply(line string) string {
	return fmt.Sprintf("❌ Gagal memproses: %s\n\nPeriksa kembali perintahnya lalu coba lagi.", strings.TrimSpace(line))
}
