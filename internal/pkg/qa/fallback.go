package qa

import "strings"

// fallbackEntry maps keyword variants (Hebrew and English) to a canned
// Amendment-13 answer used when the LLM is unreachable.
type fallbackEntry struct {
	keywords []string
	answer   string
}

var fallbackEntries = []fallbackEntry{
	{
		keywords: []string{"ממונה", "מינוי", "dpo", "appointment"},
		answer: "על פי תיקון 13, ארגון המעבד מידע רגיש בהיקף משמעותי או עוסק בסחר במידע " +
			"חייב למנות ממונה על הגנת הפרטיות. הממונה חייב להיות בעל ידע מתאים, בלתי תלוי " +
			"בתפקידו, ופרטיו מדווחים לרשות להגנת הפרטיות. ניתן להפיק כתב מינוי מעודכן דרך מסך המסמכים.",
	},
	{
		keywords: []string{"מאגר", "רישום", "ropa", "registration", "database"},
		answer: "חובת רישום מאגרי מידע צומצמה בתיקון 13, אך נותרה חובת תיעוד פעילויות עיבוד (ROPA). " +
			"יש לתעד את מטרות העיבוד, סוגי המידע, מקבלי המידע ותקופות השמירה. " +
			"מסמך ROPA מלא ניתן להפקה דרך מסך המסמכים.",
	},
	{
		keywords: []string{"אבטחה", "אבטחת מידע", "security", "breach", "אירוע"},
		answer: "תקנות אבטחת מידע מחייבות סיווג המאגר לרמת אבטחה, נוהל אבטחה כתוב, ניהול הרשאות " +
			"ותיעוד אירועי אבטחה. אירוע אבטחה חמור מחייב דיווח לרשות להגנת הפרטיות ללא דיחוי. " +
			"מומלץ לפתוח פנייה לממונה דרך המערכת בכל חשד לאירוע.",
	},
	{
		keywords: []string{"הסכמה", "consent", "עיבוד", "מידע רגיש"},
		answer: "עיבוד מידע אישי מחייב בסיס חוקי, ולרוב הסכמה מדעת. תיקון 13 הרחיב את הגדרת " +
			"המידע הרגיש והחמיר את דרישות היידוע בעת איסוף. יש לוודא שנוסח היידוע כולל את מטרת " +
			"האיסוף, חובת מסירה אם קיימת, ולמי יועבר המידע.",
	},
	{
		keywords: []string{"קנס", "עיצום", "אכיפה", "fine", "penalty", "enforcement"},
		answer: "תיקון 13 העניק לרשות להגנת הפרטיות סמכויות אכיפה מנהליות, כולל עיצומים כספיים " +
			"משמעותיים הנגזרים מהיקף העיבוד וחומרת ההפרה. עמידה בחובות המינוי, התיעוד והאבטחה " +
			"מקטינה את החשיפה.",
	},
}

const fallbackDefault = "לא הצלחנו להפיק תשובה אוטומטית לשאלה זו כרגע. " +
	"השאלה הועברה לממונה הגנת הפרטיות שלכם ותיענה בהקדם. " +
	"לשאלות דחופות ניתן לפנות דרך מסך ההודעות."

// FallbackAnswer returns a canned answer matched by keyword, and whether the
// question should be escalated to the DPO queue (no keyword matched).
func FallbackAnswer(question string) (string, bool) {
	q := strings.ToLower(question)
	for _, entry := range fallbackEntries {
		for _, kw := range entry.keywords {
			if strings.Contains(q, kw) {
				return entry.answer, false
			}
		}
	}
	return fallbackDefault, true
}
