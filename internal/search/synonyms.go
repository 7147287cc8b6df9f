package search

// synonymGroup maps a head term to the words it expands into.  The head
// is always part of its own group.
type synonymGroup struct {
    head  string
    words []string
}

// synonyms is scanned in order so expansion output is deterministic.
var synonyms = []synonymGroup{
    // electronics
    {"keyboard", []string{"keyboard", "คีย์บอร์ด", "คีบอร์ด", "mechanical", "gaming"}},
    {"mechanical", []string{"mechanical", "เมคานิคอล", "คีย์บอร์ด", "keyboard"}},
    {"mouse", []string{"mouse", "เมาส์", "gaming", "wireless"}},
    {"headphone", []string{"headphone", "หูฟัง", "earphone", "headset"}},
    {"earphone", []string{"earphone", "หูฟัง", "headphone", "earbud", "earbuds"}},
    {"laptop", []string{"laptop", "โน๊ตบุ๊ค", "notebook", "computer"}},
    {"phone", []string{"phone", "โทรศัพท์", "smartphone", "mobile", "iphone", "samsung"}},
    {"watch", []string{"watch", "นาฬิกา", "smartwatch", "smart"}},
    {"camera", []string{"camera", "กล้อง", "dslr", "mirrorless"}},
    {"speaker", []string{"speaker", "ลำโพง", "bluetooth", "wireless"}},
    {"monitor", []string{"monitor", "จอ", "display", "screen"}},
    {"charger", []string{"charger", "ที่ชาร์จ", "adapter", "power"}},
    {"cable", []string{"cable", "สาย", "usb", "type-c"}},

    // fashion
    {"shirt", []string{"shirt", "เสื้อ", "tshirt", "t-shirt", "top"}},
    {"pants", []string{"pants", "กางเกง", "jeans", "trousers"}},
    {"shoe", []string{"shoe", "รองเท้า", "shoes", "sneakers", "boots"}},
    {"bag", []string{"bag", "กระเป๋า", "backpack", "handbag"}},
    {"dress", []string{"dress", "เดรส", "ชุดเดรส", "skirt"}},

    // home
    {"chair", []string{"chair", "เก้าอี้", "gaming", "office"}},
    {"table", []string{"table", "โต๊ะ", "desk"}},
    {"lamp", []string{"lamp", "โคม", "โคมไฟ", "light"}},
    {"fan", []string{"fan", "พัดลม", "cooling"}},

    // beauty
    {"makeup", []string{"makeup", "เมคอัพ", "cosmetic", "beauty"}},
    {"skincare", []string{"skincare", "สกินแคร์", "cream", "serum"}},
    {"perfume", []string{"perfume", "น้ำหอม", "fragrance"}},

    // general
    {"gaming", []string{"gaming", "เกมมิ่ง", "gamer", "game"}},
    {"wireless", []string{"wireless", "ไร้สาย", "bluetooth"}},
    {"usb", []string{"usb", "usb-c", "type-c", "type"}},
    {"rgb", []string{"rgb", "led", "light", "backlit"}},
}

func (g synonymGroup) matches(word string) bool {
    if g.head == word {
        return true
    }
    for _, w := range g.words {
        if w == word {
            return true
        }
    }
    return false
}

// stopwords are dropped from queries before keyword expansion.
var stopwords = toSet(
    // filler
    "find", "me", "a", "an", "the", "on", "in", "for", "with", "and", "or",
    "please", "want", "need", "looking", "some", "my", "to", "of",
    // price words left behind after price extraction
    "within", "under", "below", "above", "over", "around", "about", "less", "more", "than",
    "thb", "baht", "usd", "dollars", "dollar", "price", "cost", "budget",
    // marketplaces
    "shopee", "lazada", "amazon",
    // superlatives
    "good", "best", "top", "great", "nice", "cheap", "expensive",
    // gift words
    "gift", "gifts", "present", "presents", "idea", "ideas",
    // thai
    "หา", "ต้องการ", "อยากได้", "ราคา", "ไม่เกิน", "ประมาณ", "บาท", "ของขวัญ",
)

func toSet(words ...string) map[string]struct{} {
    m := make(map[string]struct{}, len(words))
    for _, w := range words {
        m[w] = struct{}{}
    }
    return m
}
