// Package prompt builds the generation and revision prompts sent to the
// language model. Every function here is pure.
package prompt

import (
	"fmt"
	"strings"

	"github.com/FranksOps/quill/internal/article"
	"github.com/FranksOps/quill/internal/llm"
)

// System is sent with every request.
const System = "شما یک نویسنده حرفه‌ای و دقیق فارسی هستید که مقالات جامع، خلاقانه و با جزئیات دقیق تولید می‌کنید. " +
	"اطلاعات ارائه شده باید دقیق و مستند بوده و از الگوی نگارش SEO-friendly، زبان انسانی و جذاب استفاده شود."

const (
	articleDelimiter = "--- متن مقاله فعلی ---"
	closingDelimiter = "-----------------------"
)

var repetitionDirective = fmt.Sprintf("از هر کلمه کلیدی اصلی حداقل %d بار و از هر کلمه کلیدی فرعی حداقل %d بار به صورت طبیعی استفاده کن.",
	article.PrimaryRepetitions, article.SecondaryRepetitions)

var travelogueDirectives = []string{
	"متن سفرنامه باید از زبان اول شخص نوشته شود و لحن آن صمیمی و جذاب باشد.",
	"تجربیات شخصی، تصمیم‌گیری‌ها و اتفاقات روزانه سفر را بیان کن.",
	"در متن سفرنامه " + repetitionDirective,
	"برای هر عنوان H1 حداقل دو پاراگراف طولانی و جذاب بنویس.",
	"برای هر عنوان H2 و H3 حداقل یک پاراگراف خیلی طولانی (حداقل 5 سطر) آماده کن.",
	"عناوین H2 و H3 باید منطقی و مرتبط بوده و بین آن‌ها یک متن مرتبط وجود داشته باشد.",
	"در توضیحات هر عنوان از جزئیات مرتبط مانند اسامی افراد، مکان‌ها، تاریخچه، سبک معماری و غیره استفاده کن.",
	"لینک‌ها باید کلیک‌پذیر بوده و به صورت طبیعی در متن قرار گیرند.",
	"از عبارات بولد استفاده نکن و از شماره‌گذاری عناوین پرهیز کن.",
	"اطلاعات دقیق و مستند ارائه کن.",
	"به هیچ عنوان عبارات با ساختار (هتل'نام شهر') را به عنوان هتل واقعی در نظر نگیر.",
	"بخش نتیجه‌گیری باید با عنوانی خلاقانه و متناسب با موضوع بوده و از عبارات کلیشه‌ای اجتناب شود.",
	"نوع نگارش: \"Human-like, engaging, detailed, SEO-friendly\"",
	"عناوین باید با تعداد `#`های مناسب شروع شده و بعد از آنها یک فاصله وجود داشته باشد.",
}

var genericDirectives = []string{
	"لحن مقاله باید متناسب با نوع مقاله باشد.",
	repetitionDirective,
	"برای هر عنوان H1 حداقل دو پاراگراف طولانی و جذاب بنویس.",
	"برای هر عنوان H2 و H3 حداقل یک پاراگراف خیلی طولانی (حداقل 5 سطر) آماده کن.",
	"هر H2 باید حداقل بین 2 تا 4 H3 داشته باشد.",
	"لینک‌ها باید کلیک‌پذیر بوده و به صورت طبیعی در متن قرار گیرند.",
	"اطلاعات دقیق و مستند ارائه کن و از گمانه‌زنی پرهیز کن.",
	"از عبارات بولد استفاده نکن و از شماره‌گذاری عناوین خودداری کن.",
	"به هیچ عنوان عبارات با ساختار (هتل'نام شهر') را به عنوان هتل واقعی در نظر نگیر.",
	"بخش نتیجه‌گیری باید با عنوانی خلاقانه و متناسب با موضوع بوده و از عبارات کلیشه‌ای اجتناب کند.",
	"تمام اصول SEO رعایت شود.",
	"نوع نگارش: \"Human-like, engaging, detailed, SEO-friendly\"",
	"عناوین باید با تعداد `#`های مناسب شروع شده و بعد از آنها یک فاصله وجود داشته باشد.",
}

// Build renders the generation prompt for req. crawled is embedded verbatim
// when non-empty.
func Build(req article.Request, crawled string) llm.Prompt {
	var b strings.Builder

	directives := genericDirectives
	if req.Type == article.Travelogue {
		directives = travelogueDirectives
		b.WriteString("لطفاً یک سفرنامه فارسی برای موضوع زیر بنویس:\n")
		fmt.Fprintf(&b, "- موضوع: %s\n", req.Topic)
	} else {
		b.WriteString("لطفاً یک مقاله فارسی برای موضوع زیر بنویس:\n")
		fmt.Fprintf(&b, "- موضوع: %s\n", req.Topic)
		fmt.Fprintf(&b, "- نوع مقاله: %s\n", req.TypeLabel)
	}
	fmt.Fprintf(&b, "- تعداد کلمات: حدود %d\n", req.TargetWordCount)

	if len(req.PrimaryKeywords) > 0 {
		fmt.Fprintf(&b, "- کلمات کلیدی اصلی: %s\n", strings.Join(req.PrimaryKeywords, ", "))
	}
	if len(req.SecondaryKeywords) > 0 {
		fmt.Fprintf(&b, "- کلمات کلیدی فرعی: %s\n", strings.Join(req.SecondaryKeywords, ", "))
	}
	if links := req.NonEmptyLinks(); len(links) > 0 {
		b.WriteString("- لینک‌ها:\n")
		for _, l := range links {
			fmt.Fprintf(&b, "  - %s\n", l)
		}
	}

	if t := strings.TrimSpace(req.MainTitle); t != "" {
		fmt.Fprintf(&b, "- عنوان اصلی (H1): %s\n", t)
	}
	if h := strings.TrimSpace(req.H2Hints); h != "" {
		fmt.Fprintf(&b, "- پیشنهاد عناوین H2: %s\n", h)
	}
	if h := strings.TrimSpace(req.H3Hints); h != "" {
		fmt.Fprintf(&b, "- پیشنهاد عناوین H3: %s\n", h)
	}

	if crawled != "" {
		b.WriteString("\nاطلاعات استخراج شده از اینترنت:\n")
		b.WriteString(crawled)
		b.WriteString("\n")
	}

	b.WriteString("\nنکات راهنما:\n")
	for _, d := range directives {
		b.WriteString("- ")
		b.WriteString(d)
		b.WriteString("\n")
	}

	return llm.Prompt{System: System, User: b.String()}
}

// Shrink asks for article to be cut down to about target words.
func Shrink(text string, target int) llm.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "مقاله زیر باید به تعداد کلمات حدود %d کاهش یابد.\n\n", target)
	writeArticle(&b, text)
	fmt.Fprintf(&b, "لطفاً متن مقاله را به صورت طبیعی و بدون از دست دادن اطلاعات مهم کاهش دهید تا تعداد کلمات آن به حدود %d برسد.", target)
	return llm.Prompt{System: System, User: b.String()}
}

// Expand asks for article to be grown to about target words while working
// in the keywords it is missing.
func Expand(text string, target int, missingPrimary, missingSecondary []string) llm.Prompt {
	var groups []string
	if len(missingPrimary) > 0 {
		groups = append(groups, "کلمات کلیدی اصلی: "+strings.Join(missingPrimary, ", "))
	}
	if len(missingSecondary) > 0 {
		groups = append(groups, "کلمات کلیدی فرعی: "+strings.Join(missingSecondary, ", "))
	}

	var b strings.Builder
	b.WriteString("مقاله زیر باید بازنویسی شود تا:\n")
	fmt.Fprintf(&b, "- تعداد کلمات به حدود %d برسد.\n", target)
	b.WriteString("- کلمات کلیدی زیر که استفاده نشده‌اند، به متن اضافه شوند:\n")
	b.WriteString(strings.Join(groups, "; "))
	b.WriteString("\n\n")
	writeArticle(&b, text)
	b.WriteString("لطفاً متن مقاله را گسترش دهید و کلمات کلیدی بالا را به طور طبیعی و مناسب در متن بگنجانید.")
	return llm.Prompt{System: System, User: b.String()}
}

func writeArticle(b *strings.Builder, text string) {
	b.WriteString(articleDelimiter)
	b.WriteString("\n")
	b.WriteString(text)
	b.WriteString("\n")
	b.WriteString(closingDelimiter)
	b.WriteString("\n")
}
